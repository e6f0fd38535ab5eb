package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tale-forge/internal/database"
	"tale-forge/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const storyColumns = `id, user_id, title, description, genre, target_age, characters, setting,
        chapters, words_per_chapter, include_audio, status, created_at, updated_at`

const (
	createStoryQuery = `
        INSERT INTO stories
            (id, user_id, title, description, genre, target_age, characters, setting,
             chapters, words_per_chapter, include_audio, status, created_at, updated_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
    `
	getStoryForUserQuery = `SELECT ` + storyColumns + ` FROM stories WHERE id = $1 AND user_id = $2`
	listStoriesQuery     = `
        SELECT ` + storyColumns + `
        FROM stories
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3
    `
	updateStoryStatusQuery = `UPDATE stories SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3 AND status <> 'completed'`
	markStoryCompleted     = `UPDATE stories SET status = 'completed', updated_at = NOW() WHERE id = $1`
	deleteStoryQuery       = `DELETE FROM stories WHERE id = $1`
)

var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

func NewPgStoryRepository(db database.DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

func (r *pgStoryRepository) Create(ctx context.Context, querier database.DBTX, story *models.Story) error {
	logFields := []zap.Field{zap.String("storyID", story.ID.String()), zap.String("userID", story.UserID.String())}

	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = story.CreatedAt
	if story.Status == "" {
		story.Status = models.StoryStatusDraft
	}
	characters := story.Characters
	if characters == nil {
		characters = []string{}
	}

	_, err := querier.Exec(ctx, createStoryQuery,
		story.ID,
		story.UserID,
		story.Title,
		story.Description,
		story.Genre,
		story.TargetAge,
		characters,
		story.Setting,
		story.Chapters,
		story.WordsPerChapter,
		story.IncludeAudio,
		string(story.Status),
		story.CreatedAt,
		story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create story %s: %w", story.ID, err)
	}
	r.logger.Debug("Story created", logFields...)
	return nil
}

// GetByIDForUser returns ErrStoryNotFound for stories owned by someone else.
func (r *pgStoryRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Story, error) {
	var story models.Story
	if err := pgxscan.Get(ctx, r.db, &story, getStoryForUserQuery, id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.String("storyID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return &story, nil
}

func (r *pgStoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Story, error) {
	stories := make([]models.Story, 0)
	if err := pgxscan.Select(ctx, r.db, &stories, listStoriesQuery, userID, limit, offset); err != nil {
		r.logger.Error("Failed to list stories", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list stories for user %s: %w", userID, err)
	}
	return stories, nil
}

// UpdateStatus never touches a completed story; that case reports
// ErrStoryNotFound like a foreign one.
func (r *pgStoryRepository) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status models.StoryStatus) error {
	tag, err := r.db.Exec(ctx, updateStoryStatusQuery, string(status), id, userID)
	if err != nil {
		r.logger.Error("Failed to update story status",
			zap.String("storyID", id.String()), zap.String("status", string(status)), zap.Error(err))
		return fmt.Errorf("failed to update status of story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	return nil
}

func (r *pgStoryRepository) MarkCompleted(ctx context.Context, querier database.DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, markStoryCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to mark story %s completed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	return nil
}

// Delete removes only the story row; segments must be deleted first.
func (r *pgStoryRepository) Delete(ctx context.Context, querier database.DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	return nil
}
