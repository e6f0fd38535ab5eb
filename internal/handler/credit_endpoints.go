package handler

import (
	"net/http"

	"tale-forge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) getCredits(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	uc, err := h.credits.GetCredits(c.Request.Context(), identity)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, uc)
}

func (h *Handler) listTransactions(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	limit, offset, ok := h.pageParams(c)
	if !ok {
		return
	}
	limit, offset = service.NormalizePage(limit, offset)

	entries, err := h.credits.ListTransactions(c.Request.Context(), identity, limit, offset)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionListResponse{Transactions: entries, Limit: limit, Offset: offset})
}

func (h *Handler) estimateCost(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req estimateRequest
	if err := bindJSON(c, &req); err != nil {
		h.respond(c, err)
		return
	}

	estimate, err := h.credits.EstimateCost(c.Request.Context(), identity, service.EstimateInput{
		Chapters:        req.Chapters,
		WordsPerChapter: req.WordsPerChapter,
		IncludeAudio:    req.IncludeAudio,
	})
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

func (h *Handler) grantCredits(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req grantCreditsRequest
	if err := bindJSON(c, &req); err != nil {
		h.respond(c, err)
		return
	}

	entry, err := h.credits.GrantCredits(c.Request.Context(), identity, uuid.MustParse(req.UserID), req.Amount, req.Description)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) checkout(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := bindJSON(c, &req); err != nil {
		h.respond(c, err)
		return
	}

	session, err := h.billing.Checkout(c.Request.Context(), identity, req.input())
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) portal(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	session, err := h.billing.Portal(c.Request.Context(), identity)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) setAudioEntitlement(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	userID, ok := h.uuidParam(c, "user_id")
	if !ok {
		return
	}
	var req audioEntitlementRequest
	if err := bindJSON(c, &req); err != nil {
		h.respond(c, err)
		return
	}

	if err := h.billing.SetAudioEntitlement(c.Request.Context(), identity, userID, *req.Enabled); err != nil {
		h.respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
