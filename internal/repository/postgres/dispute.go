package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"buildmarket-engine/internal/domain"
)

// Disputes live in one shared append-only table keyed by entity id; both
// repositories use these helpers inside their commit transactions.

func insertDispute(ctx context.Context, tx *sql.Tx, d *domain.Dispute) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	query := `INSERT INTO disputes (id, entity_id, issue_type, description, photo_refs, opened_by, opened_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.ExecContext(ctx, query,
		d.ID, d.EntityID, d.IssueType, d.Description, pq.Array(d.PhotoRefs), d.OpenedBy, d.OpenedAt)
	return wrapErr(err)
}

func resolveDispute(ctx context.Context, tx *sql.Tx, id uuid.UUID, resolution string, at time.Time) error {
	query := `UPDATE disputes SET resolved_at = $1, resolution = $2 WHERE id = $3 AND resolved_at IS NULL`
	res, err := tx.ExecContext(ctx, query, at, resolution, id)
	if err != nil {
		return wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return domain.ErrStaleVersion
	}
	return nil
}

func openDispute(ctx context.Context, db *sql.DB, entityID uuid.UUID) (*domain.Dispute, error) {
	d := &domain.Dispute{}
	var photos pq.StringArray
	query := `SELECT id, entity_id, issue_type, description, photo_refs, opened_by, opened_at, resolved_at, resolution
	          FROM disputes WHERE entity_id = $1 AND resolved_at IS NULL
	          ORDER BY opened_at DESC LIMIT 1`
	var resolution sql.NullString
	err := db.QueryRowContext(ctx, query, entityID).Scan(
		&d.ID, &d.EntityID, &d.IssueType, &d.Description, &photos, &d.OpenedBy, &d.OpenedAt, &d.ResolvedAt, &resolution)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	d.PhotoRefs = photos
	d.Resolution = resolution.String
	return d, nil
}
