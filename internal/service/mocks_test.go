package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"buildmarket-engine/internal/domain"
)

// MockOrderRepo
type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}
func (m *MockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
func (m *MockOrderRepo) CommitStatus(ctx context.Context, o *domain.Order, expected int32) error {
	args := m.Called(ctx, o, expected)
	return args.Error(0)
}
func (m *MockOrderRepo) CommitProposal(ctx context.Context, o *domain.Order, expected int32, supersede *uuid.UUID, p *domain.WindowProposal) error {
	args := m.Called(ctx, o, expected, supersede, p)
	return args.Error(0)
}
func (m *MockOrderRepo) CommitProposalDecision(ctx context.Context, o *domain.Order, expected int32, proposalID uuid.UUID, decision domain.ProposalStatus) error {
	args := m.Called(ctx, o, expected, proposalID, decision)
	return args.Error(0)
}
func (m *MockOrderRepo) CommitDispute(ctx context.Context, o *domain.Order, expected int32, d *domain.Dispute) error {
	args := m.Called(ctx, o, expected, d)
	return args.Error(0)
}
func (m *MockOrderRepo) CommitDisputeResolution(ctx context.Context, o *domain.Order, expected int32, disputeID uuid.UUID, resolution string, at time.Time) error {
	args := m.Called(ctx, o, expected, disputeID, resolution, at)
	return args.Error(0)
}
func (m *MockOrderRepo) ListProposals(ctx context.Context, orderID uuid.UUID) ([]domain.WindowProposal, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]domain.WindowProposal), args.Error(1)
}

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) Create(ctx context.Context, r *domain.RentalBooking) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockRentalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RentalBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalBooking), args.Error(1)
}
func (m *MockRentalRepo) CommitStatus(ctx context.Context, r *domain.RentalBooking, expected int32) error {
	args := m.Called(ctx, r, expected)
	return args.Error(0)
}
func (m *MockRentalRepo) CommitConfirmation(ctx context.Context, r *domain.RentalBooking, expected int32, confirmed, created *domain.ConfirmationRecord) error {
	args := m.Called(ctx, r, expected, confirmed, created)
	return args.Error(0)
}
func (m *MockRentalRepo) CommitFees(ctx context.Context, r *domain.RentalBooking, expected int32) error {
	args := m.Called(ctx, r, expected)
	return args.Error(0)
}
func (m *MockRentalRepo) CommitDispute(ctx context.Context, r *domain.RentalBooking, expected int32, d *domain.Dispute) error {
	args := m.Called(ctx, r, expected, d)
	return args.Error(0)
}
func (m *MockRentalRepo) CommitDisputeResolution(ctx context.Context, r *domain.RentalBooking, expected int32, disputeID uuid.UUID, resolution string, at time.Time) error {
	args := m.Called(ctx, r, expected, disputeID, resolution, at)
	return args.Error(0)
}
func (m *MockRentalRepo) ListExpiredConfirmations(ctx context.Context, now time.Time) ([]domain.ConfirmationRecord, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.ConfirmationRecord), args.Error(1)
}
func (m *MockRentalRepo) FlagExpiry(ctx context.Context, recordID uuid.UUID) (bool, error) {
	args := m.Called(ctx, recordID)
	return args.Bool(0), args.Error(1)
}
