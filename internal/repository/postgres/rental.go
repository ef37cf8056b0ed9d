package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/repository"
)

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func (r *rentalRepository) Create(ctx context.Context, b *domain.RentalBooking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedOn = time.Now().UTC()
	b.Version = 1
	query := `INSERT INTO rental_bookings (id, buyer_id, supplier_id, tool_ref, start_date, end_date, day_rate_cents, total_cents, deposit_cents, delivery_fee_cents, late_return_fee_cents, damage_fee_cents, status, prior_status, created_on, version)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.BuyerID, b.SupplierID, b.ToolRef, b.StartDate, b.EndDate,
		b.DayRateCents, b.TotalCents, b.DepositCents,
		b.Fees.DeliveryFeeCents, b.Fees.LateReturnFeeCents, b.Fees.DamageFeeCents,
		b.Status, b.PriorStatus, b.CreatedOn, b.Version)
	return wrapErr(err)
}

func (r *rentalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RentalBooking, error) {
	b := &domain.RentalBooking{}
	query := `SELECT id, buyer_id, supplier_id, tool_ref, start_date, end_date, day_rate_cents, total_cents, deposit_cents, delivery_fee_cents, late_return_fee_cents, damage_fee_cents, status, prior_status, created_on, version
	          FROM rental_bookings WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.BuyerID, &b.SupplierID, &b.ToolRef, &b.StartDate, &b.EndDate,
		&b.DayRateCents, &b.TotalCents, &b.DepositCents,
		&b.Fees.DeliveryFeeCents, &b.Fees.LateReturnFeeCents, &b.Fees.DamageFeeCents,
		&b.Status, &b.PriorStatus, &b.CreatedOn, &b.Version)
	if err != nil {
		return nil, wrapErr(err)
	}

	records, err := r.confirmations(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range records {
		rec := records[i]
		switch rec.Kind {
		case domain.ConfirmationHandover:
			b.Handover = &rec
		case domain.ConfirmationReturn:
			b.Return = &rec
		}
	}

	dispute, err := openDispute(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	b.Dispute = dispute

	return b, nil
}

func (r *rentalRepository) confirmations(ctx context.Context, rentalID uuid.UUID) ([]domain.ConfirmationRecord, error) {
	query := `SELECT id, rental_id, kind, scheduled_at, deadline, confirmed_at, photo_refs, condition_notes, expiry_flagged, created_on
	          FROM confirmation_records WHERE rental_id = $1 ORDER BY created_on ASC`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var records []domain.ConfirmationRecord
	for rows.Next() {
		var rec domain.ConfirmationRecord
		var photos pq.StringArray
		if err := rows.Scan(&rec.ID, &rec.RentalID, &rec.Kind, &rec.ScheduledAt, &rec.Deadline,
			&rec.ConfirmedAt, &photos, &rec.ConditionNotes, &rec.ExpiryFlagged, &rec.CreatedOn); err != nil {
			return nil, wrapErr(err)
		}
		rec.PhotoRefs = photos
		records = append(records, rec)
	}
	return records, wrapErr(rows.Err())
}

// commitRental performs the versioned parent write inside tx.
func commitRental(ctx context.Context, tx *sql.Tx, b *domain.RentalBooking, expected int32) error {
	query := `UPDATE rental_bookings
	          SET status = $1, prior_status = $2, delivery_fee_cents = $3, late_return_fee_cents = $4,
	              damage_fee_cents = $5, version = version + 1
	          WHERE id = $6 AND version = $7`
	res, err := tx.ExecContext(ctx, query,
		b.Status, b.PriorStatus, b.Fees.DeliveryFeeCents, b.Fees.LateReturnFeeCents, b.Fees.DamageFeeCents,
		b.ID, expected)
	if err != nil {
		return wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return casOutcome(ctx, tx, "rental_bookings", b.ID)
	}
	b.Version = expected + 1
	return nil
}

func (r *rentalRepository) CommitStatus(ctx context.Context, b *domain.RentalBooking, expected int32) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		return commitRental(ctx, tx, b, expected)
	})
}

func (r *rentalRepository) CommitConfirmation(ctx context.Context, b *domain.RentalBooking, expected int32, confirmed, created *domain.ConfirmationRecord) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if confirmed != nil {
			query := `UPDATE confirmation_records
			          SET confirmed_at = $1, photo_refs = $2, condition_notes = $3
			          WHERE id = $4 AND confirmed_at IS NULL`
			res, err := tx.ExecContext(ctx, query,
				confirmed.ConfirmedAt, pq.Array(confirmed.PhotoRefs), confirmed.ConditionNotes, confirmed.ID)
			if err != nil {
				return wrapErr(err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return wrapErr(err)
			}
			if n == 0 {
				// confirmed_at is immutable once set.
				return domain.ErrStaleVersion
			}
		}
		if created != nil {
			if created.ID == uuid.Nil {
				created.ID = uuid.New()
			}
			query := `INSERT INTO confirmation_records (id, rental_id, kind, scheduled_at, deadline, photo_refs, condition_notes, expiry_flagged, created_on)
			          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
			if _, err := tx.ExecContext(ctx, query,
				created.ID, created.RentalID, created.Kind, created.ScheduledAt, created.Deadline,
				pq.Array(created.PhotoRefs), created.ConditionNotes, created.ExpiryFlagged, created.CreatedOn); err != nil {
				return wrapErr(err)
			}
		}
		return commitRental(ctx, tx, b, expected)
	})
}

func (r *rentalRepository) CommitFees(ctx context.Context, b *domain.RentalBooking, expected int32) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		return commitRental(ctx, tx, b, expected)
	})
}

func (r *rentalRepository) CommitDispute(ctx context.Context, b *domain.RentalBooking, expected int32, d *domain.Dispute) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertDispute(ctx, tx, d); err != nil {
			return err
		}
		return commitRental(ctx, tx, b, expected)
	})
}

func (r *rentalRepository) CommitDisputeResolution(ctx context.Context, b *domain.RentalBooking, expected int32, disputeID uuid.UUID, resolution string, at time.Time) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := resolveDispute(ctx, tx, disputeID, resolution, at); err != nil {
			return err
		}
		return commitRental(ctx, tx, b, expected)
	})
}

// ListExpiredConfirmations returns the unconfirmed records whose deadline
// has passed. Unflagged records are due their one-time expiry signal.
// Already-flagged return records reappear as long as the booking is still
// ACTIVE, so a sweep that flagged a record but then lost the OVERDUE commit
// gets another chance on the next run.
func (r *rentalRepository) ListExpiredConfirmations(ctx context.Context, now time.Time) ([]domain.ConfirmationRecord, error) {
	query := `SELECT c.id, c.rental_id, c.kind, c.scheduled_at, c.deadline, c.confirmed_at, c.photo_refs, c.condition_notes, c.expiry_flagged, c.created_on
	          FROM confirmation_records c
	          JOIN rental_bookings b ON b.id = c.rental_id
	          WHERE c.confirmed_at IS NULL AND c.deadline < $1
	            AND (c.expiry_flagged = FALSE OR (c.kind = $2 AND b.status = $3))
	          ORDER BY c.deadline ASC`
	rows, err := r.db.QueryContext(ctx, query, now, domain.ConfirmationReturn, domain.RentalStatusActive)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var records []domain.ConfirmationRecord
	for rows.Next() {
		var rec domain.ConfirmationRecord
		var photos pq.StringArray
		if err := rows.Scan(&rec.ID, &rec.RentalID, &rec.Kind, &rec.ScheduledAt, &rec.Deadline,
			&rec.ConfirmedAt, &photos, &rec.ConditionNotes, &rec.ExpiryFlagged, &rec.CreatedOn); err != nil {
			return nil, wrapErr(err)
		}
		rec.PhotoRefs = photos
		records = append(records, rec)
	}
	return records, wrapErr(rows.Err())
}

func (r *rentalRepository) FlagExpiry(ctx context.Context, recordID uuid.UUID) (bool, error) {
	query := `UPDATE confirmation_records SET expiry_flagged = TRUE
	          WHERE id = $1 AND expiry_flagged = FALSE AND confirmed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, recordID)
	if err != nil {
		return false, wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}
