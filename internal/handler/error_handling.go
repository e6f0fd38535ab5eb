package handler

import (
	"errors"
	"net/http"

	"tale-forge/internal/middleware"
	"tale-forge/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorDescriptor is what a client sees for a failed request.
type ErrorDescriptor struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
}

// ClassifyError maps err onto the fixed error taxonomy. Unrecognised errors
// become INTERNAL_ERROR. The error chain is put into details only when
// exposeDetails is set.
func ClassifyError(err error, exposeDetails bool) ErrorDescriptor {
	d := classify(err)
	if exposeDetails && err != nil {
		if d.Details == nil {
			d.Details = map[string]interface{}{}
		}
		d.Details["debug"] = err.Error()
	}
	return d
}

func classify(err error) ErrorDescriptor {
	var vErr *models.ValidationError

	switch {
	case errors.As(err, &vErr):
		return ErrorDescriptor{
			Status:  http.StatusBadRequest,
			Code:    models.ErrCodeValidation,
			Message: "Request validation failed",
			Details: map[string]interface{}{"errors": vErr.Errors},
		}
	case errors.Is(err, models.ErrInvalidInput):
		return ErrorDescriptor{Status: http.StatusBadRequest, Code: models.ErrCodeValidation, Message: "Request validation failed"}
	case errors.Is(err, models.ErrStoryCompleted):
		return ErrorDescriptor{Status: http.StatusBadRequest, Code: models.ErrCodeValidation, Message: "Story already has all planned chapters"}
	case errors.Is(err, models.ErrAudioNotEntitled):
		return ErrorDescriptor{Status: http.StatusBadRequest, Code: models.ErrCodeValidation, Message: "Audio narration is not available for this account"}

	case errors.Is(err, models.ErrTokenExpired):
		return ErrorDescriptor{Status: http.StatusUnauthorized, Code: models.ErrCodeUnauthorized, Message: "Token has expired"}
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrTokenInvalid),
		errors.Is(err, models.ErrTokenMalformed):
		return ErrorDescriptor{Status: http.StatusUnauthorized, Code: models.ErrCodeUnauthorized, Message: "Authentication required"}
	case errors.Is(err, models.ErrForbidden):
		return ErrorDescriptor{Status: http.StatusForbidden, Code: models.ErrCodeForbidden, Message: "Insufficient permissions"}

	case errors.Is(err, models.ErrRateLimited):
		return ErrorDescriptor{Status: http.StatusTooManyRequests, Code: models.ErrCodeRateLimit, Message: "Too many requests, please retry later"}
	case errors.Is(err, models.ErrInsufficientCredits):
		return ErrorDescriptor{Status: http.StatusPaymentRequired, Code: models.ErrCodeInsufficientCredits, Message: "Insufficient credits"}
	case errors.Is(err, models.ErrAIGenerationFailed):
		return ErrorDescriptor{Status: http.StatusServiceUnavailable, Code: models.ErrCodeAIGeneration, Message: "Story generation is temporarily unavailable"}

	// Проверяется до not found: writer оборачивает любые сбои в ErrDatabase.
	case errors.Is(err, models.ErrDatabase),
		errors.Is(err, models.ErrSegmentPositionTaken),
		errors.Is(err, models.ErrBalanceUnavailable):
		return ErrorDescriptor{Status: http.StatusInternalServerError, Code: models.ErrCodeDatabase, Message: "A database error occurred"}

	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrSegmentNotFound):
		return ErrorDescriptor{Status: http.StatusNotFound, Code: models.ErrCodeNotFound, Message: "Resource not found"}
	}
	return ErrorDescriptor{Status: http.StatusInternalServerError, Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
}

// NewErrorResponder returns the responder shared by handlers and middleware.
func NewErrorResponder(logger *zap.Logger, exposeDetails bool) middleware.ErrorResponder {
	log := logger.Named("ErrorResponder")
	return func(c *gin.Context, err error) {
		d := ClassifyError(err, exposeDetails)
		apiErrorsTotal.WithLabelValues(d.Code).Inc()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", d.Status),
			zap.String("code", d.Code),
			zap.Error(err),
		}
		if d.Status >= http.StatusInternalServerError {
			log.Error("Request failed", fields...)
		} else {
			log.Debug("Request rejected", fields...)
		}

		c.AbortWithStatusJSON(d.Status, models.ErrorResponse{Error: d.Message, Code: d.Code, Details: d.Details})
	}
}
