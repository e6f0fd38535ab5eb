package mocks

import (
	"context"

	"tale-forge/internal/database"
	"tale-forge/internal/models"
	"tale-forge/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// TxRunner runs the callback directly with a nil querier; repository mocks
// ignore the querier argument.
type TxRunner struct {
	mock.Mock
}

func (m *TxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx database.DBTX) error) error {
	m.Called(ctx)
	return fn(ctx, nil)
}

// StoryRepository mock
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, querier database.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}

func (m *StoryRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id, userID)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}

func (m *StoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Story, error) {
	args := m.Called(ctx, userID, limit, offset)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}

func (m *StoryRepository) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status models.StoryStatus) error {
	args := m.Called(ctx, id, userID, status)
	return args.Error(0)
}

func (m *StoryRepository) MarkCompleted(ctx context.Context, querier database.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *StoryRepository) Delete(ctx context.Context, querier database.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

// SegmentRepository mock
type SegmentRepository struct {
	mock.Mock
}

func (m *SegmentRepository) Insert(ctx context.Context, querier database.DBTX, segment *models.StorySegment) error {
	args := m.Called(ctx, querier, segment)
	return args.Error(0)
}

func (m *SegmentRepository) InsertChoices(ctx context.Context, querier database.DBTX, choices []models.StoryChoice) error {
	args := m.Called(ctx, querier, choices)
	return args.Error(0)
}

func (m *SegmentRepository) LinkChoice(ctx context.Context, querier database.DBTX, segmentID uuid.UUID, position int, nextSegmentID uuid.UUID) error {
	args := m.Called(ctx, querier, segmentID, position, nextSegmentID)
	return args.Error(0)
}

func (m *SegmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StorySegment, error) {
	args := m.Called(ctx, id)
	segment, _ := args.Get(0).(*models.StorySegment)
	return segment, args.Error(1)
}

func (m *SegmentRepository) GetLast(ctx context.Context, storyID uuid.UUID) (*models.StorySegment, error) {
	args := m.Called(ctx, storyID)
	segment, _ := args.Get(0).(*models.StorySegment)
	return segment, args.Error(1)
}

func (m *SegmentRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.StorySegment, error) {
	args := m.Called(ctx, storyID)
	segments, _ := args.Get(0).([]models.StorySegment)
	return segments, args.Error(1)
}

func (m *SegmentRepository) DeleteByStory(ctx context.Context, querier database.DBTX, storyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, querier, storyID)
	return args.Get(0).(int64), args.Error(1)
}

// CreditRepository mock
type CreditRepository struct {
	mock.Mock
}

func (m *CreditRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *CreditRepository) GetCredits(ctx context.Context, userID uuid.UUID) (*models.UserCredits, error) {
	args := m.Called(ctx, userID)
	credits, _ := args.Get(0).(*models.UserCredits)
	return credits, args.Error(1)
}

func (m *CreditRepository) Debit(ctx context.Context, querier database.DBTX, userID uuid.UUID, amount int) (int, error) {
	args := m.Called(ctx, querier, userID, amount)
	return args.Int(0), args.Error(1)
}

func (m *CreditRepository) Grant(ctx context.Context, querier database.DBTX, userID uuid.UUID, amount int) (int, error) {
	args := m.Called(ctx, querier, userID, amount)
	return args.Int(0), args.Error(1)
}

func (m *CreditRepository) InsertTransaction(ctx context.Context, querier database.DBTX, entry *models.CreditTransaction) error {
	args := m.Called(ctx, querier, entry)
	return args.Error(0)
}

func (m *CreditRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	entries, _ := args.Get(0).([]models.CreditTransaction)
	return entries, args.Error(1)
}

// CustomerRepository mock
type CustomerRepository struct {
	mock.Mock
}

func (m *CustomerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.BillingCustomer, error) {
	args := m.Called(ctx, userID)
	customer, _ := args.Get(0).(*models.BillingCustomer)
	return customer, args.Error(1)
}

func (m *CustomerRepository) Create(ctx context.Context, customer *models.BillingCustomer) (*models.BillingCustomer, error) {
	args := m.Called(ctx, customer)
	stored, _ := args.Get(0).(*models.BillingCustomer)
	return stored, args.Error(1)
}

func (m *CustomerRepository) IsAudioEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *CustomerRepository) SetAudioEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error {
	args := m.Called(ctx, userID, enabled)
	return args.Error(0)
}

// Writer mock
type Writer struct {
	mock.Mock
}

func (m *Writer) WriteSegment(ctx context.Context, params repository.WriteSegmentParams) (*repository.WriteSegmentResult, error) {
	args := m.Called(ctx, params)
	result, _ := args.Get(0).(*repository.WriteSegmentResult)
	return result, args.Error(1)
}

var (
	_ database.TxRunner             = (*TxRunner)(nil)
	_ repository.StoryRepository    = (*StoryRepository)(nil)
	_ repository.SegmentRepository  = (*SegmentRepository)(nil)
	_ repository.CreditRepository   = (*CreditRepository)(nil)
	_ repository.CustomerRepository = (*CustomerRepository)(nil)
	_ repository.Writer             = (*Writer)(nil)
)
