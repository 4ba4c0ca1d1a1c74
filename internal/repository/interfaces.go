package repository

import (
	"context"

	"aposta-be/internal/domain"
)

// BetRepository defines durable storage and identity assignment for bets.
// Implementations never cache: every Get and List re-reads the store.
type BetRepository interface {
	// Create assigns the next id (1 + max existing, or 1 when the store is
	// empty), persists the bet, and returns the stored form
	Create(ctx context.Context, bet *domain.Bet) (*domain.Bet, error)

	// Get retrieves a bet by id, NotFound when no such bet exists
	Get(ctx context.Context, id int64) (*domain.Bet, error)

	// List returns all bets ordered by id descending; an empty store
	// yields an empty slice, not an error
	List(ctx context.Context) ([]*domain.Bet, error)

	// Save overwrites an existing bet, NotFound when the id was never created
	Save(ctx context.Context, bet *domain.Bet) error

	// Delete removes a bet, NotFound when absent
	Delete(ctx context.Context, id int64) error
}
