// Package ledger enforces the day-registration rules of an attendance bet
// and computes its derived absence statistics. Every function is pure: it
// operates on a Bet value plus an explicit evaluation date and returns an
// updated copy or a typed error. Persistence is the caller's problem.
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"aposta-be/internal/domain"
	"aposta-be/pkg/errors"
)

// InclusiveDayCount returns the number of calendar days in [start, end]
func InclusiveDayCount(start, end domain.Date) int {
	return start.DaysUntil(end) + 1
}

// DatesBetween enumerates every calendar date in [start, end] ascending
func DatesBetween(start, end domain.Date) []domain.Date {
	if end.Before(start) {
		return nil
	}
	dates := make([]domain.Date, 0, InclusiveDayCount(start, end))
	for d := start; !d.After(end); d = d.Next() {
		dates = append(dates, d)
	}
	return dates
}

// NewBet validates creation fields and builds a bet with an empty day list.
// Identity assignment belongs to the repository.
func NewBet(req *domain.CreateBetRequest, today domain.Date) (*domain.Bet, error) {
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return nil, errors.NewValidationError(errors.CodeValidation, err.Error(), nil)
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		return nil, errors.NewValidationError(errors.CodeValidation, err.Error(), nil)
	}

	if !start.Before(end) {
		return nil, errors.NewValidationError(errors.CodeInvalidRange,
			fmt.Sprintf("start date %s must be strictly before end date %s", start, end),
			map[string]interface{}{"startDate": start, "endDate": end})
	}

	if start.Before(today) {
		return nil, errors.NewValidationError(errors.CodePastStart,
			fmt.Sprintf("start date %s is before today (%s)", start, today),
			map[string]interface{}{"startDate": start, "today": today})
	}

	period := InclusiveDayCount(start, end)
	if req.AbsenceLimit < 0 || req.AbsenceLimit > period {
		return nil, errors.NewValidationError(errors.CodeLimitExceedsPeriod,
			fmt.Sprintf("absence limit %d must be between 0 and the period length of %d days", req.AbsenceLimit, period),
			map[string]interface{}{"absenceLimit": req.AbsenceLimit, "periodDays": period})
	}

	if req.EntryFee < 0 {
		return nil, errors.NewValidationError(errors.CodeValidation,
			"entry fee must not be negative", nil)
	}

	seen := make(map[string]bool, len(req.Participants))
	participants := make([]string, 0, len(req.Participants))
	for _, name := range req.Participants {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.NewValidationError(errors.CodeValidation,
				"participant names must not be blank", nil)
		}
		if seen[name] {
			return nil, errors.NewValidationError(errors.CodeValidation,
				fmt.Sprintf("duplicate participant %q", name), nil)
		}
		seen[name] = true
		participants = append(participants, name)
	}

	return &domain.Bet{
		StartDate:    start,
		EndDate:      end,
		AbsenceLimit: req.AbsenceLimit,
		EntryFee:     req.EntryFee,
		Participants: participants,
		Days:         []domain.DayRecord{},
	}, nil
}

// RegisterDay applies the register operation for date with the given
// attendance. When edit is true an already-recorded date is overwritten
// instead of rejected. The input bet is never mutated.
//
// Validation order is fixed: future date, out of range, already recorded,
// gap in sequence. The first failing check wins.
func RegisterDay(bet *domain.Bet, date domain.Date, attendance domain.AttendanceMap, today domain.Date, edit bool) (*domain.Bet, error) {
	if date.After(today) {
		return nil, errors.NewValidationError(errors.CodeFutureDate,
			fmt.Sprintf("cannot record the future date %s: today is %s", date, today),
			map[string]interface{}{"date": date, "today": today})
	}

	if date.Before(bet.StartDate) || date.After(bet.EndDate) {
		return nil, errors.NewValidationError(errors.CodeOutOfRange,
			fmt.Sprintf("date %s is outside the bet period %s to %s", date, bet.StartDate, bet.EndDate),
			map[string]interface{}{"date": date, "startDate": bet.StartDate, "endDate": bet.EndDate})
	}

	// Normalization runs after the record-state checks so a conflicting
	// date reports ALREADY_RECORDED even when the map is also bad
	idx := bet.FindDay(date)
	if idx >= 0 {
		if !edit {
			return nil, errors.NewValidationError(errors.CodeAlreadyRecorded,
				fmt.Sprintf("day %s is already recorded: use edit to modify it", date),
				map[string]interface{}{"date": date})
		}
		total, err := normalizeAttendance(bet, attendance)
		if err != nil {
			return nil, err
		}
		updated := bet.Clone()
		updated.Days[idx].Attendance = total
		updated.SortDays()
		return updated, nil
	}

	// Fresh registration: every elapsed period date before this one must
	// already be recorded (backfill-forward only)
	if missing, ok := firstMissingBefore(bet, date, today); ok {
		return nil, errors.NewValidationError(errors.CodeGapInSequence,
			fmt.Sprintf("cannot record %s while %s is still unrecorded", date, missing),
			map[string]interface{}{"date": date, "firstMissingDate": missing})
	}

	total, err := normalizeAttendance(bet, attendance)
	if err != nil {
		return nil, err
	}

	updated := bet.Clone()
	updated.Days = append(updated.Days, domain.DayRecord{Date: date, Attendance: total})
	updated.SortDays()
	return updated, nil
}

// EditDay replaces the attendance map of an existing record. Unlike a
// register with the edit flag, a missing record is an error here, and the
// gap check never runs.
func EditDay(bet *domain.Bet, date domain.Date, attendance domain.AttendanceMap, today domain.Date) (*domain.Bet, error) {
	if date.After(today) {
		return nil, errors.NewValidationError(errors.CodeFutureDate,
			fmt.Sprintf("cannot record the future date %s: today is %s", date, today),
			map[string]interface{}{"date": date, "today": today})
	}

	if date.Before(bet.StartDate) || date.After(bet.EndDate) {
		return nil, errors.NewValidationError(errors.CodeOutOfRange,
			fmt.Sprintf("date %s is outside the bet period %s to %s", date, bet.StartDate, bet.EndDate),
			map[string]interface{}{"date": date, "startDate": bet.StartDate, "endDate": bet.EndDate})
	}

	idx := bet.FindDay(date)
	if idx < 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no record exists for day %s", date))
	}

	total, err := normalizeAttendance(bet, attendance)
	if err != nil {
		return nil, err
	}

	updated := bet.Clone()
	updated.Days[idx].Attendance = total
	updated.SortDays()
	return updated, nil
}

// DeleteDay removes the record for date. Removing an absent date is a
// no-op, and the remaining sequence is deliberately not re-validated: the
// gap left by deleting a middle day is resolved by a future register.
func DeleteDay(bet *domain.Bet, date domain.Date) *domain.Bet {
	updated := bet.Clone()
	idx := updated.FindDay(date)
	if idx < 0 {
		return updated
	}
	updated.Days = append(updated.Days[:idx], updated.Days[idx+1:]...)
	updated.SortDays()
	return updated
}

// ComputeAbsences counts, per participant, the recorded days on which they
// were absent. A participant missing from a record's map counts as absent.
func ComputeAbsences(bet *domain.Bet) map[string]int {
	absences := make(map[string]int, len(bet.Participants))
	for _, name := range bet.Participants {
		absences[name] = 0
	}
	for _, day := range bet.Days {
		for _, name := range bet.Participants {
			if !day.Attendance[name] {
				absences[name]++
			}
		}
	}
	return absences
}

// ParticipantsOverLimit returns the participants whose absence count
// strictly exceeds the bet's limit, sorted by name
func ParticipantsOverLimit(bet *domain.Bet) []string {
	absences := ComputeAbsences(bet)
	var lost []string
	for name, count := range absences {
		if count > bet.AbsenceLimit {
			lost = append(lost, name)
		}
	}
	sort.Strings(lost)
	return lost
}

// BuildSummary derives the full-period render model: per-participant
// standings plus every calendar date of the period classified as recorded,
// pending (elapsed but unrecorded) or future
func BuildSummary(bet *domain.Bet, today domain.Date) *domain.BetSummary {
	absences := ComputeAbsences(bet)

	participants := make([]domain.ParticipantSummary, len(bet.Participants))
	for i, name := range bet.Participants {
		participants[i] = domain.ParticipantSummary{
			Name:     name,
			Absences: absences[name],
			Lost:     absences[name] > bet.AbsenceLimit,
		}
	}

	period := DatesBetween(bet.StartDate, bet.EndDate)
	days := make([]domain.DaySummary, len(period))
	recorded := 0
	for i, date := range period {
		switch idx := bet.FindDay(date); {
		case idx >= 0:
			days[i] = domain.DaySummary{Date: date, Status: domain.DayStatusRecorded, Attendance: bet.Days[idx].Attendance.Clone()}
			recorded++
		case date.After(today):
			days[i] = domain.DaySummary{Date: date, Status: domain.DayStatusFuture}
		default:
			days[i] = domain.DaySummary{Date: date, Status: domain.DayStatusPending}
		}
	}

	return &domain.BetSummary{
		BetID:        bet.ID,
		StartDate:    bet.StartDate,
		EndDate:      bet.EndDate,
		AbsenceLimit: bet.AbsenceLimit,
		EntryFee:     bet.EntryFee,
		TotalDays:    len(period),
		RecordedDays: recorded,
		Participants: participants,
		Days:         days,
	}
}

// normalizeAttendance makes the map total over the roster: unknown names
// are rejected, missing participants become an explicit absence
func normalizeAttendance(bet *domain.Bet, attendance domain.AttendanceMap) (domain.AttendanceMap, error) {
	for name := range attendance {
		if !bet.HasParticipant(name) {
			return nil, errors.NewValidationError(errors.CodeValidation,
				fmt.Sprintf("unknown participant %q", name),
				map[string]interface{}{"participant": name})
		}
	}
	total := make(domain.AttendanceMap, len(bet.Participants))
	for _, name := range bet.Participants {
		total[name] = attendance[name]
	}
	return total, nil
}

// firstMissingBefore reports the earliest date in [startDate, date) that is
// not after today and has no record
func firstMissingBefore(bet *domain.Bet, date, today domain.Date) (domain.Date, bool) {
	for d := bet.StartDate; d.Before(date); d = d.Next() {
		if d.After(today) {
			break
		}
		if bet.FindDay(d) < 0 {
			return d, true
		}
	}
	return "", false
}
