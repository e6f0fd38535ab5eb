package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus is the lifecycle state of a story.
type StoryStatus string

const (
	StoryStatusDraft     StoryStatus = "draft"
	StoryStatusPublished StoryStatus = "published"
	StoryStatusArchived  StoryStatus = "archived"
	// StoryStatusCompleted is set by the writer when the last planned chapter
	// is stored; users cannot set it.
	StoryStatusCompleted StoryStatus = "completed"
)

// IsUserSettable reports whether a user may move a story into s.
func (s StoryStatus) IsUserSettable() bool {
	switch s {
	case StoryStatusDraft, StoryStatusPublished, StoryStatusArchived:
		return true
	}
	return false
}

type Story struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	UserID          uuid.UUID   `json:"user_id" db:"user_id"`
	Title           string      `json:"title" db:"title"`
	Description     string      `json:"description" db:"description"`
	Genre           string      `json:"genre" db:"genre"`
	TargetAge       string      `json:"target_age" db:"target_age"`
	Characters      []string    `json:"characters" db:"characters"`
	Setting         string      `json:"setting" db:"setting"`
	Chapters        int         `json:"chapters" db:"chapters"`
	WordsPerChapter int         `json:"words_per_chapter" db:"words_per_chapter"`
	IncludeAudio    bool        `json:"include_audio" db:"include_audio"`
	Status          StoryStatus `json:"status" db:"status"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// StorySegment is one generated chapter. Immutable once written.
type StorySegment struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	StoryID   uuid.UUID     `json:"story_id" db:"story_id"`
	Position  int           `json:"position" db:"position"`
	Content   string        `json:"content" db:"content"`
	ImageURL  *string       `json:"image_url,omitempty" db:"image_url"`
	AudioURL  *string       `json:"audio_url,omitempty" db:"audio_url"`
	WordCount int           `json:"word_count" db:"word_count"`
	Provider  string        `json:"provider" db:"provider"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	Choices   []StoryChoice `json:"choices" db:"-"`
}

type StoryChoice struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	SegmentID     uuid.UUID  `json:"segment_id" db:"segment_id"`
	Position      int        `json:"position" db:"position"`
	Text          string     `json:"text" db:"text"`
	NextSegmentID *uuid.UUID `json:"next_segment_id,omitempty" db:"next_segment_id"`
}

// StoryDetails is a story with its ordered segments.
type StoryDetails struct {
	Story
	Segments []StorySegment `json:"segments"`
}
