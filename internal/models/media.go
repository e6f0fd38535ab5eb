package models

import (
	"time"

	"github.com/google/uuid"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
)

// MediaTask is published for the external image/audio workers.
type MediaTask struct {
	TaskID    uuid.UUID `json:"task_id"`
	Kind      MediaKind `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	StoryID   uuid.UUID `json:"story_id"`
	SegmentID uuid.UUID `json:"segment_id"`
	Text      string    `json:"text"`
	TargetAge string    `json:"target_age"`
	CreatedAt time.Time `json:"created_at"`
}
