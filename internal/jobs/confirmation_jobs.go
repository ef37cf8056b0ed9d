package jobs

import (
	"context"
	"time"

	"buildmarket-engine/internal/logger"
)

// SweepConfirmations flags confirmation windows whose deadline has passed
// and drives expired return windows into OVERDUE. The sweep is idempotent,
// so overlapping runs are harmless.
func (jr *JobRunner) SweepConfirmations() {
	jr.runWithRecovery("SweepConfirmations", func() {
		ctx := context.Background()

		flagged, overdue, err := jr.rentals.SweepExpiredConfirmations(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("Confirmation sweep failed", "error", err)
			return
		}
		logger.Info("Confirmation sweep finished", "flagged", flagged, "overdue", overdue)
	})
}
