package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aposta-be/internal/domain"
	"aposta-be/internal/repository"
	"aposta-be/pkg/errors"
	"aposta-be/pkg/logger"
)

const serviceToday = domain.Date("2025-01-03")

func newTestService(t *testing.T) *BetService {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	repo, err := repository.NewFileRepository(t.TempDir(), log)
	require.NoError(t, err)
	return NewBetService(repo, nil, log, func() domain.Date { return serviceToday })
}

func createTestBet(t *testing.T, svc *BetService) *domain.Bet {
	t.Helper()
	bet, err := svc.CreateBet(context.Background(), &domain.CreateBetRequest{
		StartDate:    "2025-01-03",
		EndDate:      "2025-01-07",
		AbsenceLimit: 1,
		EntryFee:     50,
		Participants: []string{"A", "B"},
	})
	require.NoError(t, err)
	return bet
}

func TestBetServiceCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	bet := createTestBet(t, svc)
	assert.Equal(t, int64(1), bet.ID)
	assert.Empty(t, bet.Days)

	got, err := svc.GetBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, bet, got)

	t.Run("creation validation propagates its code", func(t *testing.T) {
		_, err := svc.CreateBet(ctx, &domain.CreateBetRequest{
			StartDate:    "2025-01-03",
			EndDate:      "2025-01-07",
			AbsenceLimit: 10,
			Participants: []string{"A"},
		})
		require.Error(t, err)
		assert.Equal(t, errors.CodeLimitExceedsPeriod, errors.AsAppError(err).Code)
	})
}

func TestBetServiceRegisterDayPersists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bet := createTestBet(t, svc)

	updated, err := svc.RegisterDay(ctx, bet.ID, &domain.RegisterDayRequest{
		Date:       "2025-01-03",
		Attendance: map[string]bool{"A": true, "B": false},
	})
	require.NoError(t, err)
	require.Len(t, updated.Days, 1)

	// The mutation reached the store, not just the returned value
	stored, err := svc.GetBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Days, stored.Days)

	t.Run("register same date again fails", func(t *testing.T) {
		_, err := svc.RegisterDay(ctx, bet.ID, &domain.RegisterDayRequest{
			Date:       "2025-01-03",
			Attendance: map[string]bool{"A": true, "B": true},
		})
		require.Error(t, err)
		assert.Equal(t, errors.CodeAlreadyRecorded, errors.AsAppError(err).Code)
	})

	t.Run("malformed date is a validation error", func(t *testing.T) {
		_, err := svc.RegisterDay(ctx, bet.ID, &domain.RegisterDayRequest{Date: "03/01/2025"})
		require.Error(t, err)
		assert.Equal(t, errors.CodeValidation, errors.AsAppError(err).Code)
	})

	t.Run("unknown bet is NotFound", func(t *testing.T) {
		_, err := svc.RegisterDay(ctx, 99, &domain.RegisterDayRequest{
			Date:       "2025-01-03",
			Attendance: map[string]bool{},
		})
		require.Error(t, err)
		assert.Equal(t, errors.CodeNotFound, errors.AsAppError(err).Code)
	})
}

func TestBetServiceEditDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bet := createTestBet(t, svc)

	_, err := svc.RegisterDay(ctx, bet.ID, &domain.RegisterDayRequest{
		Date:       "2025-01-03",
		Attendance: map[string]bool{"A": true, "B": true},
	})
	require.NoError(t, err)

	updated, err := svc.EditDay(ctx, bet.ID, "2025-01-03", domain.AttendanceMap{"A": false, "B": true})
	require.NoError(t, err)
	assert.False(t, updated.Days[0].Attendance["A"])

	_, err = svc.EditDay(ctx, bet.ID, "2025-01-04", domain.AttendanceMap{"A": true})
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.AsAppError(err).Code)
}

func TestBetServiceDeleteDayAndBet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bet := createTestBet(t, svc)

	_, err := svc.RegisterDay(ctx, bet.ID, &domain.RegisterDayRequest{
		Date:       "2025-01-03",
		Attendance: map[string]bool{"A": true, "B": true},
	})
	require.NoError(t, err)

	updated, err := svc.DeleteDay(ctx, bet.ID, "2025-01-03")
	require.NoError(t, err)
	assert.Empty(t, updated.Days)

	// Deleting an unrecorded date is a no-op, not an error
	updated, err = svc.DeleteDay(ctx, bet.ID, "2025-01-03")
	require.NoError(t, err)
	assert.Empty(t, updated.Days)

	require.NoError(t, svc.DeleteBet(ctx, bet.ID))
	err = svc.DeleteBet(ctx, bet.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.AsAppError(err).Code)
}

func TestBetServiceListOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createTestBet(t, svc)
	createTestBet(t, svc)

	bets, err := svc.ListBets(ctx)
	require.NoError(t, err)
	require.Len(t, bets, 2)
	assert.Greater(t, bets[0].ID, bets[1].ID)
}

func TestBetServiceComputeAbsences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bet := createTestBet(t, svc)

	_, err := svc.RegisterDay(ctx, bet.ID, &domain.RegisterDayRequest{
		Date:       "2025-01-03",
		Attendance: map[string]bool{"A": true, "B": false},
	})
	require.NoError(t, err)

	absences, err := svc.ComputeAbsences(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 0, "B": 1}, absences)
}

func TestBetServiceGetSummaryWithoutCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bet := createTestBet(t, svc)

	_, err := svc.RegisterDay(ctx, bet.ID, &domain.RegisterDayRequest{
		Date:       "2025-01-03",
		Attendance: map[string]bool{"A": true, "B": false},
	})
	require.NoError(t, err)

	summary, err := svc.GetSummary(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalDays)
	assert.Equal(t, 1, summary.RecordedDays)
	assert.Equal(t, domain.DayStatusRecorded, summary.Days[0].Status)
	assert.Equal(t, domain.DayStatusFuture, summary.Days[1].Status)
}

func TestBetServiceConcurrentRegistersDoNotLoseUpdates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bet := createTestBet(t, svc)

	// Backfill sequentially, then hammer edits concurrently: every edit is
	// a full load-mutate-save, so without per-bet locking some would vanish
	dates := []string{"2025-01-03"}
	for _, d := range dates {
		_, err := svc.RegisterDay(ctx, bet.ID, &domain.RegisterDayRequest{
			Date:       d,
			Attendance: map[string]bool{"A": true, "B": true},
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(present bool) {
			defer wg.Done()
			_, err := svc.EditDay(ctx, bet.ID, "2025-01-03", domain.AttendanceMap{"A": present, "B": present})
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	stored, err := svc.GetBet(ctx, bet.ID)
	require.NoError(t, err)
	require.Len(t, stored.Days, 1)
	// Whatever edit won, the map is total over the roster
	assert.Len(t, stored.Days[0].Attendance, 2)
}
