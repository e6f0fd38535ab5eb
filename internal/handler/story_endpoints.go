package handler

import (
	"net/http"

	"tale-forge/internal/models"
	"tale-forge/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// generate runs the generation pipeline. A new story answers 201, a
// continuation 200.
func (h *Handler) generate(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	body, err := readBody(c)
	if err != nil {
		h.respond(c, err)
		return
	}
	input, err := decodeGenerateRequest(body)
	if err != nil {
		h.respond(c, err)
		return
	}

	outcome, err := h.generation.Generate(c.Request.Context(), identity, input)
	if err != nil {
		h.respond(c, err)
		return
	}

	status := http.StatusOK
	if input.Kind == service.GenerationKindStart {
		status = http.StatusCreated
	}
	c.JSON(status, newGenerateResponse(outcome))
}

func (h *Handler) listStories(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	limit, offset, ok := h.pageParams(c)
	if !ok {
		return
	}
	limit, offset = service.NormalizePage(limit, offset)

	stories, err := h.stories.ListStories(c.Request.Context(), identity, limit, offset)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, storyListResponse{Stories: stories, Limit: limit, Offset: offset})
}

func (h *Handler) getStory(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	storyID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	details, err := h.stories.GetStory(c.Request.Context(), identity, storyID)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) updateStoryStatus(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	storyID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		h.respond(c, err)
		return
	}

	status := models.StoryStatus(req.Status)
	if err := h.stories.UpdateStatus(c.Request.Context(), identity, storyID, status); err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": storyID, "status": status})
}

func (h *Handler) deleteStory(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	storyID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.stories.DeleteStory(c.Request.Context(), identity, storyID); err != nil {
		h.respond(c, err)
		return
	}
	h.logger.Info("Story deleted by owner", zap.String("storyID", storyID.String()))
	c.Status(http.StatusNoContent)
}

// requestMedia queues an image or audio task for a segment.
func (h *Handler) requestMedia(kind models.MediaKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := h.identity(c)
		if !ok {
			return
		}
		segmentID, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}

		task, err := h.media.RequestMedia(c.Request.Context(), identity, segmentID, kind)
		if err != nil {
			h.respond(c, err)
			return
		}
		c.JSON(http.StatusAccepted, mediaTaskResponse{
			TaskID:    task.TaskID,
			Kind:      task.Kind,
			SegmentID: task.SegmentID,
			Status:    "queued",
		})
	}
}
