package middleware

import (
	"fmt"
	"strings"

	"tale-forge/internal/auth"
	"tale-forge/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// AuthMiddleware требует валидный Bearer токен и кладет Identity в gin.Context
// и в context.Context запроса.
func AuthMiddleware(verifier auth.TokenVerifier, respond ErrorResponder, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AuthMiddleware")
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respond(c, fmt.Errorf("%w: authorization header missing", models.ErrUnauthorized))
			return
		}
		scheme, token, found := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
			respond(c, fmt.Errorf("%w: invalid authorization header format", models.ErrUnauthorized))
			return
		}

		identity, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			log.Debug("Token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			respond(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(models.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью.
// Должен стоять после AuthMiddleware.
func RequireRole(role string, respond ErrorResponder) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromGin(c)
		if !ok {
			respond(c, models.ErrUnauthorized)
			return
		}
		if !models.HasRole(identity.Roles, role) {
			respond(c, fmt.Errorf("%w: role %q required", models.ErrForbidden, role))
			return
		}
		c.Next()
	}
}

// IdentityFromGin возвращает Identity, сохраненную AuthMiddleware.
func IdentityFromGin(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}
