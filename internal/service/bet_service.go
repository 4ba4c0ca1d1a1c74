package service

import (
	"context"

	"aposta-be/internal/domain"
	"aposta-be/internal/ledger"
	"aposta-be/internal/repository"
	"aposta-be/pkg/errors"
	"aposta-be/pkg/logger"
	"aposta-be/pkg/metrics"
)

// Clock supplies the evaluation date for ledger operations. Injected so
// tests run against a fixed calendar day.
type Clock func() domain.Date

// BetService orchestrates the ledger and the repository: load, apply one
// ledger operation, save. Every read-modify-write on a bet id holds that
// id's lock so concurrent mutations cannot lose updates.
type BetService struct {
	repo  repository.BetRepository
	cache *SummaryCache
	log   *logger.Logger
	clock Clock
	locks *betLocks
}

// NewBetService creates the service. cache may be nil, in which case every
// summary is computed from the store.
func NewBetService(repo repository.BetRepository, cache *SummaryCache, log *logger.Logger, clock Clock) *BetService {
	if clock == nil {
		clock = domain.Today
	}
	return &BetService{
		repo:  repo,
		cache: cache,
		log:   log,
		clock: clock,
		locks: newBetLocks(),
	}
}

// ListBets returns all bets, most recent id first
func (s *BetService) ListBets(ctx context.Context) ([]*domain.Bet, error) {
	return s.repo.List(ctx)
}

// GetBet returns one bet by id
func (s *BetService) GetBet(ctx context.Context, id int64) (*domain.Bet, error) {
	return s.repo.Get(ctx, id)
}

// CreateBet validates the creation fields and persists a new bet with an
// empty day list
func (s *BetService) CreateBet(ctx context.Context, req *domain.CreateBetRequest) (*domain.Bet, error) {
	bet, err := ledger.NewBet(req, s.clock())
	if err != nil {
		s.countFailure("create_bet", err)
		return nil, err
	}

	stored, err := s.repo.Create(ctx, bet)
	if err != nil {
		s.countFailure("create_bet", err)
		return nil, err
	}

	metrics.LedgerOperations.WithLabelValues("create_bet", "ok").Inc()
	s.log.WithFields(map[string]interface{}{
		"bet_id":     stored.ID,
		"start_date": stored.StartDate,
		"end_date":   stored.EndDate,
	}).Info("Bet created")

	return stored, nil
}

// RegisterDay records attendance for one date of a bet. req.Edit forces
// edit semantics for an already-recorded date.
func (s *BetService) RegisterDay(ctx context.Context, id int64, req *domain.RegisterDayRequest) (*domain.Bet, error) {
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, errors.NewValidationError(errors.CodeValidation, err.Error(), nil)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	bet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := ledger.RegisterDay(bet, date, req.Attendance, s.clock(), req.Edit)
	if err != nil {
		s.countFailure("register_day", err)
		return nil, err
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		s.countFailure("register_day", err)
		return nil, err
	}

	metrics.LedgerOperations.WithLabelValues("register_day", "ok").Inc()
	s.invalidateSummary(id)
	s.log.WithFields(map[string]interface{}{
		"bet_id": id,
		"date":   date,
		"edit":   req.Edit,
	}).Info("Day recorded")

	return updated, nil
}

// EditDay replaces the attendance map of an existing day record
func (s *BetService) EditDay(ctx context.Context, id int64, rawDate string, attendance domain.AttendanceMap) (*domain.Bet, error) {
	date, err := domain.ParseDate(rawDate)
	if err != nil {
		return nil, errors.NewValidationError(errors.CodeValidation, err.Error(), nil)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	bet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := ledger.EditDay(bet, date, attendance, s.clock())
	if err != nil {
		s.countFailure("edit_day", err)
		return nil, err
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		s.countFailure("edit_day", err)
		return nil, err
	}

	metrics.LedgerOperations.WithLabelValues("edit_day", "ok").Inc()
	s.invalidateSummary(id)
	s.log.WithFields(map[string]interface{}{"bet_id": id, "date": date}).Info("Day edited")

	return updated, nil
}

// DeleteDay removes the record for one date; removing an absent date is
// not an error
func (s *BetService) DeleteDay(ctx context.Context, id int64, rawDate string) (*domain.Bet, error) {
	date, err := domain.ParseDate(rawDate)
	if err != nil {
		return nil, errors.NewValidationError(errors.CodeValidation, err.Error(), nil)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	bet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := ledger.DeleteDay(bet, date)

	if err := s.repo.Save(ctx, updated); err != nil {
		s.countFailure("delete_day", err)
		return nil, err
	}

	metrics.LedgerOperations.WithLabelValues("delete_day", "ok").Inc()
	s.invalidateSummary(id)
	s.log.WithFields(map[string]interface{}{"bet_id": id, "date": date}).Info("Day deleted")

	return updated, nil
}

// DeleteBet removes a bet and all of its day records
func (s *BetService) DeleteBet(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.countFailure("delete_bet", err)
		return err
	}

	metrics.LedgerOperations.WithLabelValues("delete_bet", "ok").Inc()
	s.invalidateSummary(id)
	s.log.WithField("bet_id", id).Info("Bet deleted")

	return nil
}

// ComputeAbsences returns the per-participant absence counts of a bet
func (s *BetService) ComputeAbsences(ctx context.Context, id int64) (map[string]int, error) {
	bet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ledger.ComputeAbsences(bet), nil
}

// GetSummary returns the full-period render model, served from the summary
// cache when possible. The summary depends on the calendar day, so cached
// entries carry the date they were built for and are rejected on a new day.
func (s *BetService) GetSummary(ctx context.Context, id int64) (*domain.BetSummary, error) {
	today := s.clock()

	if s.cache != nil {
		if summary, ok := s.cache.Get(ctx, id, today); ok {
			return summary, nil
		}
	}

	bet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := ledger.BuildSummary(bet, today)

	if s.cache != nil {
		s.cache.Set(ctx, id, today, summary)
	}

	return summary, nil
}

func (s *BetService) invalidateSummary(id int64) {
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
}

func (s *BetService) countFailure(operation string, err error) {
	metrics.LedgerOperations.WithLabelValues(operation, "error").Inc()
	metrics.ValidationFailures.WithLabelValues(string(errors.AsAppError(err).Code)).Inc()
}
