package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"aposta-be/internal/domain"
	"aposta-be/pkg/errors"
	"aposta-be/pkg/logger"
)

const betFilePrefix = "bet-"

// FileRepository stores one pretty-printed JSON document per bet under a
// data directory, named bet-<id>.json. A store-level mutex serializes id
// assignment so concurrent creates cannot mint duplicate ids.
type FileRepository struct {
	dataDir string
	log     *logger.Logger
	mu      sync.Mutex
}

// NewFileRepository creates the data directory if needed
func NewFileRepository(dataDir string, log *logger.Logger) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create data directory", err)
	}
	return &FileRepository{dataDir: dataDir, log: log}, nil
}

func (r *FileRepository) betPath(id int64) string {
	return filepath.Join(r.dataDir, fmt.Sprintf("%s%d.json", betFilePrefix, id))
}

// Create assigns max existing id + 1 and persists the bet
func (r *FileRepository) Create(ctx context.Context, bet *domain.Bet) (*domain.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.listIDs()
	if err != nil {
		return nil, err
	}

	var next int64 = 1
	for _, id := range ids {
		if id >= next {
			next = id + 1
		}
	}

	stored := bet.Clone()
	stored.ID = next
	if err := r.write(stored); err != nil {
		return nil, err
	}

	r.log.WithFields(map[string]interface{}{
		"bet_id":   stored.ID,
		"data_dir": r.dataDir,
	}).Debug("Bet document created")

	return stored, nil
}

// Get re-reads the bet document from disk
func (r *FileRepository) Get(ctx context.Context, id int64) (*domain.Bet, error) {
	return r.read(id)
}

// List re-reads every bet document, ordered by id descending
func (r *FileRepository) List(ctx context.Context) ([]*domain.Bet, error) {
	ids, err := r.listIDs()
	if err != nil {
		return nil, err
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	bets := make([]*domain.Bet, 0, len(ids))
	for _, id := range ids {
		bet, err := r.read(id)
		if err != nil {
			// A bet deleted between the directory scan and the read is
			// not an error for the listing
			if errors.AsAppError(err).Code == errors.CodeNotFound {
				continue
			}
			return nil, err
		}
		bets = append(bets, bet)
	}
	return bets, nil
}

// Save overwrites an existing bet document
func (r *FileRepository) Save(ctx context.Context, bet *domain.Bet) error {
	if _, err := os.Stat(r.betPath(bet.ID)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError(fmt.Sprintf("bet %d not found", bet.ID))
		}
		return errors.NewStorageError("failed to stat bet document", err)
	}
	return r.write(bet)
}

// Delete removes the bet document
func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	if err := os.Remove(r.betPath(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError(fmt.Sprintf("bet %d not found", id))
		}
		return errors.NewStorageError("failed to delete bet document", err)
	}
	r.log.WithField("bet_id", id).Debug("Bet document deleted")
	return nil
}

func (r *FileRepository) read(id int64) (*domain.Bet, error) {
	data, err := os.ReadFile(r.betPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("bet %d not found", id))
		}
		return nil, errors.NewStorageError("failed to read bet document", err)
	}

	var bet domain.Bet
	if err := json.Unmarshal(data, &bet); err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("bet document %d is corrupted", id), err)
	}
	if bet.Days == nil {
		bet.Days = []domain.DayRecord{}
	}
	return &bet, nil
}

func (r *FileRepository) write(bet *domain.Bet) error {
	data, err := json.MarshalIndent(bet, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to encode bet document", err)
	}

	// Write-then-rename so a crash mid-write cannot leave a truncated
	// document behind
	path := r.betPath(bet.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewStorageError("failed to write bet document", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.NewStorageError("failed to replace bet document", err)
	}
	return nil
}

func (r *FileRepository) listIDs() ([]int64, error) {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		return nil, errors.NewStorageError("failed to scan data directory", err)
	}

	var ids []int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, betFilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, betFilePrefix), ".json")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
