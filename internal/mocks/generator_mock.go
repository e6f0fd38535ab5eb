package mocks

import (
	"context"

	"tale-forge/internal/ai"
	"tale-forge/internal/billing"
	"tale-forge/internal/prompt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// SegmentGenerator mock
type SegmentGenerator struct {
	mock.Mock
}

func (m *SegmentGenerator) GenerateSegment(ctx context.Context, userID string, sc prompt.StoryContext) (*ai.GeneratedSegment, error) {
	args := m.Called(ctx, userID, sc)
	segment, _ := args.Get(0).(*ai.GeneratedSegment)
	return segment, args.Error(1)
}

// PaymentProvider mock
type PaymentProvider struct {
	mock.Mock
}

func (m *PaymentProvider) CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}

func (m *PaymentProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.Session, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*billing.Session)
	return session, args.Error(1)
}

func (m *PaymentProvider) CreatePortalSession(ctx context.Context, customerID string) (*billing.Session, error) {
	args := m.Called(ctx, customerID)
	session, _ := args.Get(0).(*billing.Session)
	return session, args.Error(1)
}

var (
	_ ai.SegmentGenerator     = (*SegmentGenerator)(nil)
	_ billing.PaymentProvider = (*PaymentProvider)(nil)
)
