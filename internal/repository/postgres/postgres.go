package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/repository"
)

// Store bundles the postgres-backed repositories over one connection pool.
type Store struct {
	OrderRepository  repository.OrderRepository
	RentalRepository repository.RentalRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		OrderRepository:  NewOrderRepository(db),
		RentalRepository: NewRentalRepository(db),
	}
}

// Migrate applies pending goose migrations from the given directory.
func Migrate(ctx context.Context, db *sql.DB, migrationsPath string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, migrationsPath); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// wrapErr maps driver failures into the engine taxonomy. Row absence is a
// caller problem; everything else is the store being unavailable.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, domain.ErrStaleVersion) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

// casOutcome classifies a zero-row versioned update: either the entity is
// gone or somebody else committed first.
func casOutcome(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}, table string, id uuid.UUID) error {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table)
	if err := q.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return wrapErr(err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrStaleVersion
}

// inTx runs fn inside a transaction, rolling back on error.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr(err)
	}
	return nil
}
