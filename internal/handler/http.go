package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"tale-forge/internal/auth"
	"tale-forge/internal/middleware"
	"tale-forge/internal/models"
	"tale-forge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck is one dependency probed by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators of the HTTP layer. RateLimit may be nil.
type Deps struct {
	Generation service.GenerationService
	Stories    service.StoryService
	Credits    service.CreditService
	Billing    service.BillingService
	Media      service.MediaService
	Verifier   auth.TokenVerifier
	Respond    middleware.ErrorResponder
	RateLimit  gin.HandlerFunc
	Readiness  []ReadinessCheck
}

type Handler struct {
	generation service.GenerationService
	stories    service.StoryService
	credits    service.CreditService
	billing    service.BillingService
	media      service.MediaService
	verifier   auth.TokenVerifier
	respond    middleware.ErrorResponder
	rateLimit  gin.HandlerFunc
	readiness  []ReadinessCheck
	logger     *zap.Logger
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	h := &Handler{
		generation: deps.Generation,
		stories:    deps.Stories,
		credits:    deps.Credits,
		billing:    deps.Billing,
		media:      deps.Media,
		verifier:   deps.Verifier,
		respond:    deps.Respond,
		rateLimit:  deps.RateLimit,
		readiness:  deps.Readiness,
		logger:     logger.Named("Handler"),
	}
	if h.respond == nil {
		h.respond = NewErrorResponder(logger, false)
	}
	if h.rateLimit == nil {
		h.rateLimit = func(c *gin.Context) { c.Next() }
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)
	router.GET("/ready", h.ready)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(h.verifier, h.respond, h.logger))
	{
		api.POST("/generate", h.rateLimit, h.generate)

		api.GET("/stories", h.listStories)
		api.GET("/stories/:id", h.getStory)
		api.PATCH("/stories/:id/status", h.updateStoryStatus)
		api.DELETE("/stories/:id", h.deleteStory)

		api.POST("/segments/:id/image", h.rateLimit, h.requestMedia(models.MediaKindImage))
		api.POST("/segments/:id/audio", h.rateLimit, h.requestMedia(models.MediaKindAudio))

		api.GET("/credits", h.getCredits)
		api.GET("/credits/transactions", h.listTransactions)
		api.POST("/credits/estimate", h.estimateCost)

		api.POST("/billing/checkout", h.checkout)
		api.POST("/billing/portal", h.portal)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin, h.respond))
	{
		admin.POST("/credits/grant", h.grantCredits)
		admin.PUT("/billing/:user_id/audio", h.setAudioEntitlement)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready reports 503 listing every dependency that failed its probe.
func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	failed := map[string]string{}
	for _, rc := range h.readiness {
		if err := rc.Check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("check", rc.Name), zap.Error(err))
			failed[rc.Name] = "unavailable"
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// identity returns the caller set by AuthMiddleware; it responds 401 itself
// when missing.
func (h *Handler) identity(c *gin.Context) (models.Identity, bool) {
	id, ok := middleware.IdentityFromGin(c)
	if !ok {
		h.respond(c, models.ErrUnauthorized)
	}
	return id, ok
}

func (h *Handler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.respond(c, models.NewValidationError(name+" must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// pageParams parses limit and offset; clamping is left to the services.
func (h *Handler) pageParams(c *gin.Context) (int, int, bool) {
	var problems []string
	parse := func(key string) int {
		raw := c.Query(key)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			problems = append(problems, key+" must be an integer")
		}
		return n
	}
	limit, offset := parse("limit"), parse("offset")
	if len(problems) > 0 {
		h.respond(c, models.NewValidationError(problems...))
		return 0, 0, false
	}
	return limit, offset, true
}
