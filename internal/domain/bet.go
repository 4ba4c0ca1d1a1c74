package domain

import "sort"

// AttendanceMap maps a participant's display name to their presence on a
// given day: true means present, false means absent
type AttendanceMap map[string]bool

// Clone returns an independent copy of the map
func (m AttendanceMap) Clone() AttendanceMap {
	out := make(AttendanceMap, len(m))
	for name, present := range m {
		out[name] = present
	}
	return out
}

// DayRecord is the attendance snapshot for one calendar date of a bet
type DayRecord struct {
	Date       Date          `json:"date"`
	Attendance AttendanceMap `json:"attendance"`
}

// Bet is the aggregate root: a fixed date range, a roster of participants,
// an absence limit, and one DayRecord per recorded date.
type Bet struct {
	ID           int64       `json:"id"`
	StartDate    Date        `json:"startDate"`
	EndDate      Date        `json:"endDate"`
	AbsenceLimit int         `json:"absenceLimit"`
	EntryFee     float64     `json:"entryFee"`
	Participants []string    `json:"participants"`
	Days         []DayRecord `json:"days"`
}

// Clone returns a deep copy of the bet. Ledger operations mutate the copy
// and leave the input untouched.
func (b *Bet) Clone() *Bet {
	out := *b
	out.Participants = append([]string(nil), b.Participants...)
	out.Days = make([]DayRecord, len(b.Days))
	for i, day := range b.Days {
		out.Days[i] = DayRecord{Date: day.Date, Attendance: day.Attendance.Clone()}
	}
	return &out
}

// FindDay returns the index of the record for date, or -1
func (b *Bet) FindDay(date Date) int {
	for i, day := range b.Days {
		if day.Date == date {
			return i
		}
	}
	return -1
}

// SortDays re-establishes the ascending-by-date invariant
func (b *Bet) SortDays() {
	sort.Slice(b.Days, func(i, j int) bool {
		return b.Days[i].Date.Before(b.Days[j].Date)
	})
}

// HasParticipant reports whether name is on the roster
func (b *Bet) HasParticipant(name string) bool {
	for _, p := range b.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// CreateBetRequest carries the fields of a bet before identity assignment
type CreateBetRequest struct {
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	AbsenceLimit int      `json:"absenceLimit"`
	EntryFee     float64  `json:"entryFee"`
	Participants []string `json:"participants"`
}

// RegisterDayRequest carries a day registration. Edit forces edit semantics
// for an already-recorded date.
type RegisterDayRequest struct {
	Date       string          `json:"date"`
	Attendance map[string]bool `json:"attendance"`
	Edit       bool            `json:"edit"`
}

// DayStatus classifies a calendar date of the bet period for the summary
type DayStatus string

const (
	DayStatusRecorded DayStatus = "recorded"
	DayStatusPending  DayStatus = "pending"
	DayStatusFuture   DayStatus = "future"
)

// ParticipantSummary is the derived standing of one participant
type ParticipantSummary struct {
	Name     string `json:"name"`
	Absences int    `json:"absences"`
	Lost     bool   `json:"lost"`
}

// DaySummary is one calendar date of the full period with its record, if any
type DaySummary struct {
	Date       Date          `json:"date"`
	Status     DayStatus     `json:"status"`
	Attendance AttendanceMap `json:"attendance,omitempty"`
}

// BetSummary is the full-period render model the presentation layer consumes
type BetSummary struct {
	BetID        int64                `json:"betId"`
	StartDate    Date                 `json:"startDate"`
	EndDate      Date                 `json:"endDate"`
	AbsenceLimit int                  `json:"absenceLimit"`
	EntryFee     float64              `json:"entryFee"`
	TotalDays    int                  `json:"totalDays"`
	RecordedDays int                  `json:"recordedDays"`
	Participants []ParticipantSummary `json:"participants"`
	Days         []DaySummary         `json:"days"`
}
