package models

import (
	"errors"
	"strings"
)

// Application-wide standard errors
var (
	// Resources
	ErrNotFound        = errors.New("resource not found")
	ErrStoryNotFound   = errors.New("story not found")
	ErrSegmentNotFound = errors.New("segment not found")

	// Authentication & authorization
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Requests
	ErrInvalidInput     = errors.New("invalid input data")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrStoryCompleted   = errors.New("story already has all planned chapters")
	ErrAudioNotEntitled = errors.New("audio narration is not available for this account")

	// Credits
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrBalanceUnavailable  = errors.New("credit balance unavailable")

	// Generation
	ErrAIGenerationFailed = errors.New("AI generation failed")

	// Persistence
	ErrDatabase             = errors.New("database error")
	ErrSegmentPositionTaken = errors.New("segment position already taken")

	// External services
	ErrPaymentProvider = errors.New("payment provider error")
	ErrPublishFailed   = errors.New("failed to publish task")
)

// Stable error codes returned to clients.
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeRateLimit           = "RATE_LIMIT_EXCEEDED"
	ErrCodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	ErrCodeAIGeneration        = "AI_GENERATION_FAILED"
	ErrCodeDatabase            = "DATABASE_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ValidationError lists every violated input rule. It matches ErrInvalidInput
// under errors.Is.
type ValidationError struct {
	Errors []string
}

// NewValidationError returns nil when msgs is empty.
func NewValidationError(msgs ...string) *ValidationError {
	if len(msgs) == 0 {
		return nil
	}
	return &ValidationError{Errors: msgs}
}

func (e *ValidationError) Error() string {
	return "validation error: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
