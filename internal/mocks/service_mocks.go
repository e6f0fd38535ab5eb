package mocks

import (
	"context"

	"tale-forge/internal/billing"
	"tale-forge/internal/models"
	"tale-forge/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// GenerationService mock
type GenerationService struct {
	mock.Mock
}

func (m *GenerationService) Generate(ctx context.Context, identity models.Identity, input service.GenerateInput) (*service.GenerationOutcome, error) {
	args := m.Called(ctx, identity, input)
	outcome, _ := args.Get(0).(*service.GenerationOutcome)
	return outcome, args.Error(1)
}

// StoryService mock
type StoryService struct {
	mock.Mock
}

func (m *StoryService) ListStories(ctx context.Context, identity models.Identity, limit, offset int) ([]models.Story, error) {
	args := m.Called(ctx, identity, limit, offset)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}

func (m *StoryService) GetStory(ctx context.Context, identity models.Identity, storyID uuid.UUID) (*models.StoryDetails, error) {
	args := m.Called(ctx, identity, storyID)
	details, _ := args.Get(0).(*models.StoryDetails)
	return details, args.Error(1)
}

func (m *StoryService) UpdateStatus(ctx context.Context, identity models.Identity, storyID uuid.UUID, status models.StoryStatus) error {
	args := m.Called(ctx, identity, storyID, status)
	return args.Error(0)
}

func (m *StoryService) DeleteStory(ctx context.Context, identity models.Identity, storyID uuid.UUID) error {
	args := m.Called(ctx, identity, storyID)
	return args.Error(0)
}

// CreditService mock
type CreditService struct {
	mock.Mock
}

func (m *CreditService) GetCredits(ctx context.Context, identity models.Identity) (*models.UserCredits, error) {
	args := m.Called(ctx, identity)
	uc, _ := args.Get(0).(*models.UserCredits)
	return uc, args.Error(1)
}

func (m *CreditService) ListTransactions(ctx context.Context, identity models.Identity, limit, offset int) ([]models.CreditTransaction, error) {
	args := m.Called(ctx, identity, limit, offset)
	entries, _ := args.Get(0).([]models.CreditTransaction)
	return entries, args.Error(1)
}

func (m *CreditService) EstimateCost(ctx context.Context, identity models.Identity, input service.EstimateInput) (*service.Estimate, error) {
	args := m.Called(ctx, identity, input)
	estimate, _ := args.Get(0).(*service.Estimate)
	return estimate, args.Error(1)
}

func (m *CreditService) GrantCredits(ctx context.Context, identity models.Identity, userID uuid.UUID, amount int, description string) (*models.CreditTransaction, error) {
	args := m.Called(ctx, identity, userID, amount, description)
	entry, _ := args.Get(0).(*models.CreditTransaction)
	return entry, args.Error(1)
}

// BillingService mock
type BillingService struct {
	mock.Mock
}

func (m *BillingService) Checkout(ctx context.Context, identity models.Identity, input service.CheckoutInput) (*billing.Session, error) {
	args := m.Called(ctx, identity, input)
	session, _ := args.Get(0).(*billing.Session)
	return session, args.Error(1)
}

func (m *BillingService) Portal(ctx context.Context, identity models.Identity) (*billing.Session, error) {
	args := m.Called(ctx, identity)
	session, _ := args.Get(0).(*billing.Session)
	return session, args.Error(1)
}

func (m *BillingService) SetAudioEntitlement(ctx context.Context, identity models.Identity, userID uuid.UUID, enabled bool) error {
	args := m.Called(ctx, identity, userID, enabled)
	return args.Error(0)
}

// MediaService mock
type MediaService struct {
	mock.Mock
}

func (m *MediaService) RequestMedia(ctx context.Context, identity models.Identity, segmentID uuid.UUID, kind models.MediaKind) (*models.MediaTask, error) {
	args := m.Called(ctx, identity, segmentID, kind)
	task, _ := args.Get(0).(*models.MediaTask)
	return task, args.Error(1)
}

var (
	_ service.GenerationService = (*GenerationService)(nil)
	_ service.StoryService      = (*StoryService)(nil)
	_ service.CreditService     = (*CreditService)(nil)
	_ service.BillingService    = (*BillingService)(nil)
	_ service.MediaService      = (*MediaService)(nil)
)
