package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"buildmarket-engine/internal/domain"
	"buildmarket-engine/internal/events"
)

var testRentalID = uuid.MustParse("77777777-7777-7777-7777-777777777777")

var testPolicy = WindowPolicy{
	HandoverConfirm: 2 * time.Hour,
	ReturnConfirm:   24 * time.Hour,
}

func testBooking(status domain.RentalStatus, version int32) *domain.RentalBooking {
	return &domain.RentalBooking{
		ID:           testRentalID,
		BuyerID:      testBuyerID,
		SupplierID:   testSupplierID,
		ToolRef:      "tools/jackhammer-05",
		StartDate:    time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 4, 9, 17, 0, 0, 0, time.UTC),
		DayRateCents: 4500,
		TotalCents:   13500,
		DepositCents: 20000,
		Status:       status,
		Version:      version,
	}
}

func newRentalService(repo *MockRentalRepo) RentalService {
	return NewRentalService(repo, events.NewMemoryBus(), testPolicy)
}

func TestRentalService_ConfirmBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("OpensHandoverWindow", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := testBooking(domain.RentalStatusPending, 0)
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)
		repo.On("CommitConfirmation", ctx, b, int32(0), (*domain.ConfirmationRecord)(nil), mock.AnythingOfType("*domain.ConfirmationRecord")).Return(nil)

		got, err := newRentalService(repo).ConfirmBooking(ctx, supplierActor(), testRentalID, 0)
		assert.NoError(t, err)
		assert.Equal(t, domain.RentalStatusConfirmed, got.Status)
		assert.Equal(t, domain.ConfirmationHandover, got.Handover.Kind)
		assert.Equal(t, b.StartDate.Add(testPolicy.HandoverConfirm), got.Handover.Deadline)
		assert.Nil(t, got.Return)
		repo.AssertExpectations(t)
	})

	t.Run("BuyerCannotConfirmBooking", func(t *testing.T) {
		repo := new(MockRentalRepo)
		repo.On("GetByID", ctx, testRentalID).Return(testBooking(domain.RentalStatusPending, 0), nil)

		_, err := newRentalService(repo).ConfirmBooking(ctx, buyerActor(), testRentalID, 0)
		assert.ErrorIs(t, err, domain.ErrRoleNotPermitted)
	})
}

func TestRentalService_ConfirmHandover(t *testing.T) {
	ctx := context.Background()

	confirmedBooking := func() *domain.RentalBooking {
		b := testBooking(domain.RentalStatusConfirmed, 1)
		b.Handover = &domain.ConfirmationRecord{
			ID: uuid.New(), RentalID: testRentalID, Kind: domain.ConfirmationHandover,
			ScheduledAt: b.StartDate, Deadline: b.StartDate.Add(testPolicy.HandoverConfirm),
		}
		return b
	}

	t.Run("ActivatesAndOpensReturnWindow", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := confirmedBooking()
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)
		repo.On("CommitConfirmation", ctx, b, int32(1), b.Handover, mock.AnythingOfType("*domain.ConfirmationRecord")).Return(nil)

		got, err := newRentalService(repo).ConfirmHandover(ctx, buyerActor(), testRentalID, 1, []string{"photos/h1.jpg"}, "scuffed casing")
		assert.NoError(t, err)
		assert.Equal(t, domain.RentalStatusActive, got.Status)
		assert.True(t, got.Handover.Confirmed())
		assert.Equal(t, "scuffed casing", got.Handover.ConditionNotes)
		assert.Equal(t, domain.ConfirmationReturn, got.Return.Kind)
		assert.Equal(t, b.EndDate.Add(testPolicy.ReturnConfirm), got.Return.Deadline)
		repo.AssertExpectations(t)
	})

	t.Run("NoPhotosNoHandover", func(t *testing.T) {
		repo := new(MockRentalRepo)

		_, err := newRentalService(repo).ConfirmHandover(ctx, buyerActor(), testRentalID, 1, nil, "")
		assert.ErrorIs(t, err, domain.ErrIncompleteEvidence)
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("ExpiredWindowRejected", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := confirmedBooking()
		b.Handover.ExpiryFlagged = true
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)

		_, err := newRentalService(repo).ConfirmHandover(ctx, buyerActor(), testRentalID, 1, []string{"photos/h1.jpg"}, "")
		assert.ErrorIs(t, err, domain.ErrDeadlinePassed)
		repo.AssertNotCalled(t, "CommitConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRentalService_ConfirmReturn(t *testing.T) {
	ctx := context.Background()

	activeBooking := func(status domain.RentalStatus) *domain.RentalBooking {
		b := testBooking(status, 2)
		b.Return = &domain.ConfirmationRecord{
			ID: uuid.New(), RentalID: testRentalID, Kind: domain.ConfirmationReturn,
			ScheduledAt: b.EndDate, Deadline: b.EndDate.Add(testPolicy.ReturnConfirm),
		}
		return b
	}

	t.Run("CompletesFromActive", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := activeBooking(domain.RentalStatusActive)
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)
		repo.On("CommitConfirmation", ctx, b, int32(2), b.Return, (*domain.ConfirmationRecord)(nil)).Return(nil)

		got, err := newRentalService(repo).ConfirmReturn(ctx, buyerActor(), testRentalID, 2, []string{"photos/r1.jpg"}, "")
		assert.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCompleted, got.Status)
		assert.True(t, got.Return.Confirmed())
	})

	t.Run("LateReturnStillCompletes", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := activeBooking(domain.RentalStatusOverdue)
		b.Return.ExpiryFlagged = true
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)
		repo.On("CommitConfirmation", ctx, b, int32(2), b.Return, (*domain.ConfirmationRecord)(nil)).Return(nil)

		got, err := newRentalService(repo).ConfirmReturn(ctx, buyerActor(), testRentalID, 2, []string{"photos/r1.jpg"}, "muddy but intact")
		assert.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCompleted, got.Status)
	})

	t.Run("NoPhotosNoReturn", func(t *testing.T) {
		repo := new(MockRentalRepo)

		_, err := newRentalService(repo).ConfirmReturn(ctx, buyerActor(), testRentalID, 2, nil, "")
		assert.ErrorIs(t, err, domain.ErrIncompleteEvidence)
	})
}

func TestRentalService_UpdateFees(t *testing.T) {
	ctx := context.Background()

	t.Run("FeesOnlyGrow", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := testBooking(domain.RentalStatusOverdue, 3)
		b.Fees = domain.RentalFees{LateReturnFeeCents: 2000}
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)
		repo.On("CommitFees", ctx, b, int32(3)).Return(nil)

		got, err := newRentalService(repo).UpdateFees(ctx, supplierActor(), testRentalID, 3, domain.RentalFees{
			LateReturnFeeCents: 4000,
			DamageFeeCents:     1500,
		})
		assert.NoError(t, err)
		assert.Equal(t, int32(4000), got.Fees.LateReturnFeeCents)
	})

	t.Run("DecreaseRejected", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := testBooking(domain.RentalStatusOverdue, 3)
		b.Fees = domain.RentalFees{LateReturnFeeCents: 2000}
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)

		_, err := newRentalService(repo).UpdateFees(ctx, supplierActor(), testRentalID, 3, domain.RentalFees{})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		repo.AssertNotCalled(t, "CommitFees", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("BlockedWhileDisputed", func(t *testing.T) {
		repo := new(MockRentalRepo)
		repo.On("GetByID", ctx, testRentalID).Return(testBooking(domain.RentalStatusDisputed, 4), nil)

		_, err := newRentalService(repo).UpdateFees(ctx, supplierActor(), testRentalID, 4, domain.RentalFees{DamageFeeCents: 100})
		assert.ErrorIs(t, err, domain.ErrEntityFrozen)
	})
}

func TestRentalService_SweepExpiredConfirmations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)

	t.Run("ExpiredReturnGoesOverdue", func(t *testing.T) {
		repo := new(MockRentalRepo)
		rec := domain.ConfirmationRecord{
			ID: uuid.New(), RentalID: testRentalID, Kind: domain.ConfirmationReturn,
			Deadline: now.Add(-time.Hour),
		}
		b := testBooking(domain.RentalStatusActive, 2)
		repo.On("ListExpiredConfirmations", ctx, now).Return([]domain.ConfirmationRecord{rec}, nil)
		repo.On("FlagExpiry", ctx, rec.ID).Return(true, nil)
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)
		repo.On("CommitStatus", ctx, b, int32(2)).Return(nil)

		flagged, overdue, err := newRentalService(repo).SweepExpiredConfirmations(ctx, now)
		assert.NoError(t, err)
		assert.Equal(t, 1, flagged)
		assert.Equal(t, 1, overdue)
		assert.Equal(t, domain.RentalStatusOverdue, b.Status)
		repo.AssertExpectations(t)
	})

	t.Run("LostFlagRaceSkipsRecord", func(t *testing.T) {
		repo := new(MockRentalRepo)
		rec := domain.ConfirmationRecord{
			ID: uuid.New(), RentalID: testRentalID, Kind: domain.ConfirmationReturn,
			Deadline: now.Add(-time.Hour),
		}
		repo.On("ListExpiredConfirmations", ctx, now).Return([]domain.ConfirmationRecord{rec}, nil)
		repo.On("FlagExpiry", ctx, rec.ID).Return(false, nil)

		flagged, overdue, err := newRentalService(repo).SweepExpiredConfirmations(ctx, now)
		assert.NoError(t, err)
		assert.Equal(t, 0, flagged)
		assert.Equal(t, 0, overdue)
		repo.AssertNotCalled(t, "CommitStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ExpiredHandoverIsOperationalOnly", func(t *testing.T) {
		repo := new(MockRentalRepo)
		rec := domain.ConfirmationRecord{
			ID: uuid.New(), RentalID: testRentalID, Kind: domain.ConfirmationHandover,
			Deadline: now.Add(-time.Hour),
		}
		b := testBooking(domain.RentalStatusConfirmed, 1)
		repo.On("ListExpiredConfirmations", ctx, now).Return([]domain.ConfirmationRecord{rec}, nil)
		repo.On("FlagExpiry", ctx, rec.ID).Return(true, nil)
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)

		flagged, overdue, err := newRentalService(repo).SweepExpiredConfirmations(ctx, now)
		assert.NoError(t, err)
		assert.Equal(t, 1, flagged)
		assert.Equal(t, 0, overdue)
		assert.Equal(t, domain.RentalStatusConfirmed, b.Status)
		repo.AssertNotCalled(t, "CommitStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LostOverdueCommitRedrivenNextSweep", func(t *testing.T) {
		repo := new(MockRentalRepo)
		rec := domain.ConfirmationRecord{
			ID: uuid.New(), RentalID: testRentalID, Kind: domain.ConfirmationReturn,
			Deadline: now.Add(-time.Hour),
		}
		repo.On("ListExpiredConfirmations", ctx, now).Return([]domain.ConfirmationRecord{rec}, nil).Once()
		repo.On("FlagExpiry", ctx, rec.ID).Return(true, nil).Once()
		// Concurrent fee updates win both commit attempts; the flag is
		// consumed but the booking stays ACTIVE.
		repo.On("GetByID", ctx, testRentalID).Return(testBooking(domain.RentalStatusActive, 2), nil).Once()
		repo.On("CommitStatus", ctx, mock.AnythingOfType("*domain.RentalBooking"), int32(2)).Return(domain.ErrStaleVersion).Once()
		repo.On("GetByID", ctx, testRentalID).Return(testBooking(domain.RentalStatusActive, 3), nil).Once()
		repo.On("CommitStatus", ctx, mock.AnythingOfType("*domain.RentalBooking"), int32(3)).Return(domain.ErrStaleVersion).Once()

		svc := newRentalService(repo)
		flagged, overdue, err := svc.SweepExpiredConfirmations(ctx, now)
		assert.NoError(t, err)
		assert.Equal(t, 1, flagged)
		assert.Equal(t, 0, overdue)

		// The store lists the already-flagged record again while the booking
		// is still ACTIVE; this run lands the transition without reflagging.
		later := now.Add(5 * time.Minute)
		flaggedRec := rec
		flaggedRec.ExpiryFlagged = true
		b := testBooking(domain.RentalStatusActive, 4)
		repo.On("ListExpiredConfirmations", ctx, later).Return([]domain.ConfirmationRecord{flaggedRec}, nil).Once()
		repo.On("GetByID", ctx, testRentalID).Return(b, nil).Once()
		repo.On("CommitStatus", ctx, b, int32(4)).Return(nil).Once()

		flagged, overdue, err = svc.SweepExpiredConfirmations(ctx, later)
		assert.NoError(t, err)
		assert.Equal(t, 0, flagged)
		assert.Equal(t, 1, overdue)
		assert.Equal(t, domain.RentalStatusOverdue, b.Status)
		repo.AssertExpectations(t)
	})

	t.Run("BookingAlreadyMovedOn", func(t *testing.T) {
		repo := new(MockRentalRepo)
		rec := domain.ConfirmationRecord{
			ID: uuid.New(), RentalID: testRentalID, Kind: domain.ConfirmationReturn,
			Deadline: now.Add(-time.Hour),
		}
		// The buyer completed the return between the listing and the flag.
		b := testBooking(domain.RentalStatusCompleted, 3)
		repo.On("ListExpiredConfirmations", ctx, now).Return([]domain.ConfirmationRecord{rec}, nil)
		repo.On("FlagExpiry", ctx, rec.ID).Return(true, nil)
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)

		flagged, overdue, err := newRentalService(repo).SweepExpiredConfirmations(ctx, now)
		assert.NoError(t, err)
		assert.Equal(t, 1, flagged)
		assert.Equal(t, 0, overdue)
		repo.AssertNotCalled(t, "CommitStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRentalService_Disputes(t *testing.T) {
	ctx := context.Background()

	t.Run("OpenFreezesBooking", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := testBooking(domain.RentalStatusActive, 2)
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)
		repo.On("CommitDispute", ctx, b, int32(2), mock.AnythingOfType("*domain.Dispute")).Return(nil)

		got, err := newRentalService(repo).OpenDispute(ctx, supplierActor(), testRentalID, 2, "DAMAGE", "cracked housing", []string{"photos/d1.jpg"})
		assert.NoError(t, err)
		assert.Equal(t, domain.RentalStatusDisputed, got.Status)
		assert.Equal(t, domain.RentalStatusActive, got.PriorStatus)
	})

	t.Run("ResolveStraightToCompleted", func(t *testing.T) {
		repo := new(MockRentalRepo)
		b := testBooking(domain.RentalStatusDisputed, 3)
		b.PriorStatus = domain.RentalStatusOverdue
		b.Dispute = &domain.Dispute{ID: uuid.New(), EntityID: testRentalID}
		repo.On("GetByID", ctx, testRentalID).Return(b, nil)
		repo.On("CommitDisputeResolution", ctx, b, int32(3), b.Dispute.ID, "deposit covers damage", mock.AnythingOfType("time.Time")).Return(nil)

		got, err := newRentalService(repo).ResolveDispute(ctx, adminActor(), testRentalID, 3, domain.RentalStatusCompleted, "deposit covers damage")
		assert.NoError(t, err)
		assert.Equal(t, domain.RentalStatusCompleted, got.Status)
		assert.Nil(t, got.Dispute)
	})
}
