package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/lifecycle"
	"buildmarket-engine/internal/logger"
)

// SweepExpiredConfirmations scans confirmation records whose deadline has
// passed without a confirmation and signals each exactly once, using the
// per-record flag rather than timestamp comparison so repeated sweeps stay
// idempotent under clock skew.
//
// An expired return window drives the booking ACTIVE -> OVERDUE through the
// state machine. An expired handover window is surfaced for operational
// follow-up only: a late pickup is not billable, a late return is.
func (s *rentalService) SweepExpiredConfirmations(ctx context.Context, now time.Time) (flagged, overdue int, err error) {
	records, err := s.rentalRepo.ListExpiredConfirmations(ctx, now)
	if err != nil {
		return 0, 0, err
	}

	for _, rec := range records {
		if rec.ExpiryFlagged {
			// A previous run consumed the flag but the OVERDUE commit never
			// landed, either losing every version race or dying between the
			// two writes. The store keeps listing such return records while
			// the booking is ACTIVE, so each sweep re-drives the transition.
			moved, err := s.markOverdue(ctx, rec.RentalID)
			if err != nil {
				logger.Error("Failed to mark booking overdue", "error", err, "rental_id", rec.RentalID)
				continue
			}
			if moved {
				overdue++
			}
			continue
		}

		won, err := s.rentalRepo.FlagExpiry(ctx, rec.ID)
		if err != nil {
			logger.Error("Failed to flag expired confirmation", "error", err, "record_id", rec.ID)
			continue
		}
		if !won {
			// Another sweep run signaled it, or the buyer confirmed in the
			// meantime. Nothing left to do.
			continue
		}
		flagged++
		logger.Info("Confirmation window expired",
			"record_id", rec.ID, "rental_id", rec.RentalID, "kind", rec.Kind, "deadline", rec.Deadline)

		if rec.Kind != domain.ConfirmationReturn {
			// Late handover: operational follow-up only, no status change.
			// Still broadcast an invalidation hint so open detail views
			// refresh the expiry flag.
			if b, err := s.rentalRepo.GetByID(ctx, rec.RentalID); err == nil {
				s.publish(ctx, b)
			}
			continue
		}

		moved, err := s.markOverdue(ctx, rec.RentalID)
		if err != nil {
			logger.Error("Failed to mark booking overdue", "error", err, "rental_id", rec.RentalID)
			continue
		}
		if moved {
			overdue++
		}
	}
	return flagged, overdue, nil
}

// markOverdue pushes a booking into OVERDUE through the same optimistic
// commit path manual transitions use. Losing a race against a concurrent
// transition means re-reading and retrying once; if the booking left ACTIVE
// in the meantime (say the buyer squeaked in a return), there is nothing to
// do. Reports whether the transition actually landed.
func (s *rentalService) markOverdue(ctx context.Context, rentalID uuid.UUID) (bool, error) {
	const attempts = 2
	var lastErr error
	for i := 0; i < attempts; i++ {
		b, err := s.rentalRepo.GetByID(ctx, rentalID)
		if err != nil {
			return false, err
		}
		next, err := lifecycle.NextRentalStatus(lifecycle.ActionMarkOverdue, b.Status)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrEntityFrozen) {
				// Booking already moved on; the expiry flag alone stands.
				return false, nil
			}
			return false, err
		}
		expected := b.Version
		b.Status = next
		if err = s.rentalRepo.CommitStatus(ctx, b, expected); err != nil {
			if errors.Is(err, domain.ErrStaleVersion) {
				lastErr = err
				continue
			}
			return false, err
		}
		s.publish(ctx, b)
		return true, nil
	}
	return false, lastErr
}
