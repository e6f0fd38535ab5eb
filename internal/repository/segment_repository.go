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

const segmentPositionConstraint = "story_segments_story_position_key"

const segmentColumns = `id, story_id, position, content, image_url, audio_url, word_count, provider, created_at`

const (
	insertSegmentQuery = `
        INSERT INTO story_segments
            (id, story_id, position, content, image_url, audio_url, word_count, provider, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	insertChoiceQuery = `
        INSERT INTO story_choices (id, segment_id, position, text, next_segment_id)
        VALUES ($1, $2, $3, $4, $5)
    `
	linkChoiceQuery      = `UPDATE story_choices SET next_segment_id = $1 WHERE segment_id = $2 AND position = $3`
	getSegmentQuery      = `SELECT ` + segmentColumns + ` FROM story_segments WHERE id = $1`
	getLastSegmentQuery  = `SELECT ` + segmentColumns + ` FROM story_segments WHERE story_id = $1 ORDER BY position DESC LIMIT 1`
	listSegmentsQuery    = `SELECT ` + segmentColumns + ` FROM story_segments WHERE story_id = $1 ORDER BY position`
	listChoicesQuery     = `
        SELECT id, segment_id, position, text, next_segment_id
        FROM story_choices
        WHERE segment_id = ANY($1)
        ORDER BY segment_id, position
    `
	deleteChoicesByStoryQuery = `
        DELETE FROM story_choices
        WHERE segment_id IN (SELECT id FROM story_segments WHERE story_id = $1)
    `
	deleteSegmentsByStoryQuery = `DELETE FROM story_segments WHERE story_id = $1`
)

var _ SegmentRepository = (*pgSegmentRepository)(nil)

type pgSegmentRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

func NewPgSegmentRepository(db database.DBTX, logger *zap.Logger) SegmentRepository {
	return &pgSegmentRepository{
		db:     db,
		logger: logger.Named("PgSegmentRepo"),
	}
}

// Insert returns ErrSegmentPositionTaken when the story already has a
// segment at that position.
func (r *pgSegmentRepository) Insert(ctx context.Context, querier database.DBTX, segment *models.StorySegment) error {
	if segment.CreatedAt.IsZero() {
		segment.CreatedAt = time.Now().UTC()
	}
	_, err := querier.Exec(ctx, insertSegmentQuery,
		segment.ID,
		segment.StoryID,
		segment.Position,
		segment.Content,
		segment.ImageURL,
		segment.AudioURL,
		segment.WordCount,
		segment.Provider,
		segment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, segmentPositionConstraint) {
			r.logger.Warn("Segment position already taken",
				zap.String("storyID", segment.StoryID.String()), zap.Int("position", segment.Position))
			return fmt.Errorf("story %s position %d: %w", segment.StoryID, segment.Position, models.ErrSegmentPositionTaken)
		}
		r.logger.Error("Failed to insert segment", zap.String("storyID", segment.StoryID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert segment: %w", err)
	}
	return nil
}

func (r *pgSegmentRepository) InsertChoices(ctx context.Context, querier database.DBTX, choices []models.StoryChoice) error {
	for _, c := range choices {
		if _, err := querier.Exec(ctx, insertChoiceQuery, c.ID, c.SegmentID, c.Position, c.Text, c.NextSegmentID); err != nil {
			r.logger.Error("Failed to insert choice",
				zap.String("segmentID", c.SegmentID.String()), zap.Int("position", c.Position), zap.Error(err))
			return fmt.Errorf("failed to insert choice %d of segment %s: %w", c.Position, c.SegmentID, err)
		}
	}
	return nil
}

func (r *pgSegmentRepository) LinkChoice(ctx context.Context, querier database.DBTX, segmentID uuid.UUID, position int, nextSegmentID uuid.UUID) error {
	tag, err := querier.Exec(ctx, linkChoiceQuery, nextSegmentID, segmentID, position)
	if err != nil {
		return fmt.Errorf("failed to link choice %d of segment %s: %w", position, segmentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("choice %d of segment %s: %w", position, segmentID, models.ErrNotFound)
	}
	return nil
}

func (r *pgSegmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StorySegment, error) {
	return r.getOne(ctx, getSegmentQuery, id)
}

// GetLast returns the highest-positioned segment of a story.
func (r *pgSegmentRepository) GetLast(ctx context.Context, storyID uuid.UUID) (*models.StorySegment, error) {
	return r.getOne(ctx, getLastSegmentQuery, storyID)
}

func (r *pgSegmentRepository) getOne(ctx context.Context, query string, arg uuid.UUID) (*models.StorySegment, error) {
	var segment models.StorySegment
	if err := pgxscan.Get(ctx, r.db, &segment, query, arg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSegmentNotFound
		}
		r.logger.Error("Failed to get segment", zap.String("arg", arg.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	segments := []models.StorySegment{segment}
	if err := r.attachChoices(ctx, segments); err != nil {
		return nil, err
	}
	return &segments[0], nil
}

// ListByStory returns segments ordered by position, each with its choices.
func (r *pgSegmentRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.StorySegment, error) {
	segments := make([]models.StorySegment, 0)
	if err := pgxscan.Select(ctx, r.db, &segments, listSegmentsQuery, storyID); err != nil {
		r.logger.Error("Failed to list segments", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list segments of story %s: %w", storyID, err)
	}
	if err := r.attachChoices(ctx, segments); err != nil {
		return nil, err
	}
	return segments, nil
}

func (r *pgSegmentRepository) attachChoices(ctx context.Context, segments []models.StorySegment) error {
	if len(segments) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(segments))
	index := make(map[uuid.UUID]int, len(segments))
	for i, s := range segments {
		ids[i] = s.ID
		index[s.ID] = i
		segments[i].Choices = make([]models.StoryChoice, 0, 3)
	}

	var choices []models.StoryChoice
	if err := pgxscan.Select(ctx, r.db, &choices, listChoicesQuery, ids); err != nil {
		r.logger.Error("Failed to load choices", zap.Int("segments", len(ids)), zap.Error(err))
		return fmt.Errorf("failed to load choices: %w", err)
	}
	for _, c := range choices {
		i := index[c.SegmentID]
		segments[i].Choices = append(segments[i].Choices, c)
	}
	return nil
}

// DeleteByStory removes the story's choices and segments and returns the
// number of segments removed.
func (r *pgSegmentRepository) DeleteByStory(ctx context.Context, querier database.DBTX, storyID uuid.UUID) (int64, error) {
	if _, err := querier.Exec(ctx, deleteChoicesByStoryQuery, storyID); err != nil {
		return 0, fmt.Errorf("failed to delete choices of story %s: %w", storyID, err)
	}
	tag, err := querier.Exec(ctx, deleteSegmentsByStoryQuery, storyID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete segments of story %s: %w", storyID, err)
	}
	return tag.RowsAffected(), nil
}
