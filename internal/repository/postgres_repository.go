package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"aposta-be/internal/domain"
	"aposta-be/pkg/database"
	"aposta-be/pkg/errors"
)

const pgUniqueViolation = "23505"

// createAttempts bounds the retries when concurrent creates race for the
// same MAX(id)+1
const createAttempts = 3

// PostgresRepository stores the same one-document-per-bet shape as the file
// store, but as a JSONB column keyed by id. Selected with
// STORAGE_DRIVER=postgres.
type PostgresRepository struct {
	db *database.PostgresDB
}

// NewPostgresRepository creates a repository over an existing pool
func NewPostgresRepository(db *database.PostgresDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create assigns the next id inside the insert so concurrent creates
// cannot mint duplicates. When two transactions race for the same
// MAX(id)+1 the primary key rejects the loser, which retries with a
// fresh id instead of surfacing the conflict.
func (r *PostgresRepository) Create(ctx context.Context, bet *domain.Bet) (*domain.Bet, error) {
	stored := bet.Clone()

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		var id int64
		id, err = r.insertNext(ctx, stored)
		if err == nil {
			stored.ID = id
			return stored, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
	}
	return nil, errors.NewStorageError("failed to assign bet id after concurrent creates", err)
}

func (r *PostgresRepository) insertNext(ctx context.Context, stored *domain.Bet) (int64, error) {
	// The id lands in the document as well, so insert in two steps inside
	// a transaction: reserve the id, then write the final doc
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, errors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO bets (id, doc)
		 SELECT COALESCE(MAX(id), 0) + 1, '{}'::jsonb FROM bets
		 RETURNING id`,
	).Scan(&id)
	if err != nil {
		return 0, errors.NewStorageError("failed to assign bet id", err)
	}

	stored.ID = id
	doc, err := json.Marshal(stored)
	if err != nil {
		return 0, errors.NewStorageError("failed to encode bet document", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE bets SET doc = $2 WHERE id = $1`, id, doc); err != nil {
		return 0, errors.NewStorageError("failed to store bet document", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.NewStorageError("failed to commit bet creation", err)
	}

	return id, nil
}

// isUniqueViolation reports whether err wraps a Postgres unique-constraint
// violation, which Create treats as a lost id race rather than a failure
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Get retrieves a bet by id
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*domain.Bet, error) {
	var doc []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT doc FROM bets WHERE id = $1`, id).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("bet %d not found", id))
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to read bet document", err)
	}
	return decodeBet(id, doc)
}

// List returns all bets ordered by id descending
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Bet, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, doc FROM bets ORDER BY id DESC`)
	if err != nil {
		return nil, errors.NewStorageError("failed to list bet documents", err)
	}
	defer rows.Close()

	bets := make([]*domain.Bet, 0)
	for rows.Next() {
		var id int64
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, errors.NewStorageError("failed to scan bet document", err)
		}
		bet, err := decodeBet(id, doc)
		if err != nil {
			return nil, err
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to list bet documents", err)
	}
	return bets, nil
}

// Save overwrites an existing bet document
func (r *PostgresRepository) Save(ctx context.Context, bet *domain.Bet) error {
	doc, err := json.Marshal(bet)
	if err != nil {
		return errors.NewStorageError("failed to encode bet document", err)
	}

	tag, err := r.db.Pool.Exec(ctx, `UPDATE bets SET doc = $2 WHERE id = $1`, bet.ID, doc)
	if err != nil {
		return errors.NewStorageError("failed to store bet document", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("bet %d not found", bet.ID))
	}
	return nil
}

// Delete removes a bet
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM bets WHERE id = $1`, id)
	if err != nil {
		return errors.NewStorageError("failed to delete bet document", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("bet %d not found", id))
	}
	return nil
}

func decodeBet(id int64, doc []byte) (*domain.Bet, error) {
	var bet domain.Bet
	if err := json.Unmarshal(doc, &bet); err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("bet document %d is corrupted", id), err)
	}
	bet.ID = id
	if bet.Days == nil {
		bet.Days = []domain.DayRecord{}
	}
	return &bet, nil
}
