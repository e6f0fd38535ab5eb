package repository

import (
	"context"

	"tale-forge/internal/database"
	"tale-forge/internal/models"

	"github.com/google/uuid"
)

// Methods taking a querier run on whatever it is: the pool or an open
// transaction. The rest use the repository's own pool.

type StoryRepository interface {
	Create(ctx context.Context, querier database.DBTX, story *models.Story) error
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Story, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Story, error)
	UpdateStatus(ctx context.Context, id, userID uuid.UUID, status models.StoryStatus) error
	MarkCompleted(ctx context.Context, querier database.DBTX, id uuid.UUID) error
	Delete(ctx context.Context, querier database.DBTX, id uuid.UUID) error
}

type SegmentRepository interface {
	Insert(ctx context.Context, querier database.DBTX, segment *models.StorySegment) error
	InsertChoices(ctx context.Context, querier database.DBTX, choices []models.StoryChoice) error
	LinkChoice(ctx context.Context, querier database.DBTX, segmentID uuid.UUID, position int, nextSegmentID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StorySegment, error)
	GetLast(ctx context.Context, storyID uuid.UUID) (*models.StorySegment, error)
	ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.StorySegment, error)
	DeleteByStory(ctx context.Context, querier database.DBTX, storyID uuid.UUID) (int64, error)
}

type CreditRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	GetCredits(ctx context.Context, userID uuid.UUID) (*models.UserCredits, error)
	Debit(ctx context.Context, querier database.DBTX, userID uuid.UUID, amount int) (int, error)
	Grant(ctx context.Context, querier database.DBTX, userID uuid.UUID, amount int) (int, error)
	InsertTransaction(ctx context.Context, querier database.DBTX, entry *models.CreditTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error)
}

type CustomerRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.BillingCustomer, error)
	// Create stores the mapping unless one exists and returns the stored row.
	Create(ctx context.Context, customer *models.BillingCustomer) (*models.BillingCustomer, error)
	IsAudioEnabled(ctx context.Context, userID uuid.UUID) (bool, error)
	SetAudioEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error
}
