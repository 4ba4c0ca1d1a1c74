package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aposta-be/internal/domain"
	"aposta-be/pkg/errors"
	"aposta-be/pkg/logger"
)

func newTestRepo(t *testing.T) *FileRepository {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	repo, err := NewFileRepository(t.TempDir(), log)
	require.NoError(t, err)
	return repo
}

func sampleBet() *domain.Bet {
	return &domain.Bet{
		StartDate:    "2025-01-01",
		EndDate:      "2025-01-05",
		AbsenceLimit: 1,
		EntryFee:     50,
		Participants: []string{"A", "B"},
		Days:         []domain.DayRecord{},
	}
}

func TestFileRepositoryCreateAssignsSequentialIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, sampleBet())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	second, err := repo.Create(ctx, sampleBet())
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	// Id assignment is max+1, not count+1: a hole left by a delete is
	// never reused
	require.NoError(t, repo.Delete(ctx, 1))
	third, err := repo.Create(ctx, sampleBet())
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.ID)
}

func TestFileRepositoryGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleBet())
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = repo.Get(ctx, 99)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.AsAppError(err).Code)
}

func TestFileRepositoryListOrdersByIDDescending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, sampleBet())
		require.NoError(t, err)
	}

	bets, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, bets, 3)
	assert.Equal(t, int64(3), bets[0].ID)
	assert.Equal(t, int64(2), bets[1].ID)
	assert.Equal(t, int64(1), bets[2].ID)
}

func TestFileRepositorySave(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleBet())
	require.NoError(t, err)

	created.Days = []domain.DayRecord{
		{Date: "2025-01-01", Attendance: domain.AttendanceMap{"A": true, "B": false}},
	}
	require.NoError(t, repo.Save(ctx, created))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Days, got.Days)

	t.Run("save of an unknown id is NotFound", func(t *testing.T) {
		unknown := sampleBet()
		unknown.ID = 42
		err := repo.Save(ctx, unknown)
		require.Error(t, err)
		assert.Equal(t, errors.CodeNotFound, errors.AsAppError(err).Code)
	})
}

func TestFileRepositoryDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleBet())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err = repo.Get(ctx, created.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.AsAppError(err).Code)

	err = repo.Delete(ctx, created.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.AsAppError(err).Code)
}

func TestFileRepositoryIgnoresForeignFiles(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)
	dir := t.TempDir()
	repo, err := NewFileRepository(dir, log)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bet-abc.json"), []byte("{}"), 0o644))

	created, err := repo.Create(ctx, sampleBet())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	bets, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, bets, 1)
}

func TestFileRepositoryCorruptedDocument(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)
	dir := t.TempDir()
	repo, err := NewFileRepository(dir, log)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bet-7.json"), []byte("{not json"), 0o644))

	_, err = repo.Get(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStorageFailure, errors.AsAppError(err).Code)
}
