package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.LineItems)
	if err != nil {
		return wrapErr(err)
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedOn = time.Now().UTC()
	o.Version = 1
	query := `INSERT INTO orders (id, buyer_id, supplier_id, line_items, fulfillment_mode, status, prior_status, delivery_proof_ref, created_on, version)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.ExecContext(ctx, query,
		o.ID, o.BuyerID, o.SupplierID, items, o.FulfillmentMode, o.Status, o.PriorStatus, o.DeliveryProofRef, o.CreatedOn, o.Version)
	return wrapErr(err)
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o := &domain.Order{}
	var items []byte
	query := `SELECT id, buyer_id, supplier_id, line_items, fulfillment_mode, promised_start, promised_end, status, prior_status, delivery_proof_ref, created_on, delivered_on, confirmed_on, version
	          FROM orders WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.BuyerID, &o.SupplierID, &items, &o.FulfillmentMode,
		&o.PromisedStart, &o.PromisedEnd, &o.Status, &o.PriorStatus,
		&o.DeliveryProofRef, &o.CreatedOn, &o.DeliveredOn, &o.ConfirmedOn, &o.Version)
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.LineItems); err != nil {
			return nil, wrapErr(err)
		}
	}

	proposal, err := r.pendingProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Proposal = proposal

	dispute, err := openDispute(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	o.Dispute = dispute

	return o, nil
}

func (r *orderRepository) pendingProposal(ctx context.Context, orderID uuid.UUID) (*domain.WindowProposal, error) {
	p := &domain.WindowProposal{}
	query := `SELECT id, order_id, proposed_start, proposed_end, proposer_role, status, created_at
	          FROM window_proposals WHERE order_id = $1 AND status = 'PENDING'
	          ORDER BY created_at DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&p.ID, &p.OrderID, &p.ProposedStart, &p.ProposedEnd, &p.ProposerRole, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return p, nil
}

// commitOrder performs the versioned parent write inside tx.
func commitOrder(ctx context.Context, tx *sql.Tx, o *domain.Order, expected int32) error {
	query := `UPDATE orders
	          SET status = $1, prior_status = $2, promised_start = $3, promised_end = $4,
	              delivery_proof_ref = $5, delivered_on = $6, confirmed_on = $7, version = version + 1
	          WHERE id = $8 AND version = $9`
	res, err := tx.ExecContext(ctx, query,
		o.Status, o.PriorStatus, o.PromisedStart, o.PromisedEnd,
		o.DeliveryProofRef, o.DeliveredOn, o.ConfirmedOn, o.ID, expected)
	if err != nil {
		return wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return casOutcome(ctx, tx, "orders", o.ID)
	}
	o.Version = expected + 1
	return nil
}

func (r *orderRepository) CommitStatus(ctx context.Context, o *domain.Order, expected int32) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		return commitOrder(ctx, tx, o, expected)
	})
}

func (r *orderRepository) CommitProposal(ctx context.Context, o *domain.Order, expected int32, supersede *uuid.UUID, p *domain.WindowProposal) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if supersede != nil {
			query := `UPDATE window_proposals SET status = 'REJECTED' WHERE id = $1 AND status = 'PENDING'`
			if _, err := tx.ExecContext(ctx, query, *supersede); err != nil {
				return wrapErr(err)
			}
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		query := `INSERT INTO window_proposals (id, order_id, proposed_start, proposed_end, proposer_role, status, created_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := tx.ExecContext(ctx, query,
			p.ID, p.OrderID, p.ProposedStart, p.ProposedEnd, p.ProposerRole, p.Status, p.CreatedAt); err != nil {
			return wrapErr(err)
		}
		return commitOrder(ctx, tx, o, expected)
	})
}

func (r *orderRepository) CommitProposalDecision(ctx context.Context, o *domain.Order, expected int32, proposalID uuid.UUID, decision domain.ProposalStatus) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `UPDATE window_proposals SET status = $1 WHERE id = $2 AND status = 'PENDING'`
		res, err := tx.ExecContext(ctx, query, decision, proposalID)
		if err != nil {
			return wrapErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapErr(err)
		}
		if n == 0 {
			// Proposal already decided or replaced under our feet.
			return domain.ErrStaleVersion
		}
		return commitOrder(ctx, tx, o, expected)
	})
}

func (r *orderRepository) CommitDispute(ctx context.Context, o *domain.Order, expected int32, d *domain.Dispute) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertDispute(ctx, tx, d); err != nil {
			return err
		}
		return commitOrder(ctx, tx, o, expected)
	})
}

func (r *orderRepository) CommitDisputeResolution(ctx context.Context, o *domain.Order, expected int32, disputeID uuid.UUID, resolution string, at time.Time) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := resolveDispute(ctx, tx, disputeID, resolution, at); err != nil {
			return err
		}
		return commitOrder(ctx, tx, o, expected)
	})
}

func (r *orderRepository) ListProposals(ctx context.Context, orderID uuid.UUID) ([]domain.WindowProposal, error) {
	query := `SELECT id, order_id, proposed_start, proposed_end, proposer_role, status, created_at
	          FROM window_proposals WHERE order_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var proposals []domain.WindowProposal
	for rows.Next() {
		var p domain.WindowProposal
		if err := rows.Scan(&p.ID, &p.OrderID, &p.ProposedStart, &p.ProposedEnd, &p.ProposerRole, &p.Status, &p.CreatedAt); err != nil {
			return nil, wrapErr(err)
		}
		proposals = append(proposals, p)
	}
	return proposals, wrapErr(rows.Err())
}
