// Package auth verifies access tokens issued by the identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"

	"tale-forge/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Claims of a Supabase-style access token.
type Claims struct {
	Email       string      `json:"email,omitempty"`
	Role        string      `json:"role,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

type AppMetadata struct {
	Roles []string `json:"roles,omitempty"`
}

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, tokenString string) (models.Identity, error)
}

// JWTVerifier проверяет HS256 токены провайдера идентификации.
type JWTVerifier struct {
	secret []byte
	logger *zap.Logger
}

var _ TokenVerifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret string, logger *zap.Logger) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWTVerifier{secret: []byte(secret), logger: logger.Named("JWTVerifier")}, nil
}

// VerifyToken checks the signature and expiry and requires a UUID subject.
// Errors match models.ErrUnauthorized.
func (v *JWTVerifier) VerifyToken(ctx context.Context, tokenString string) (models.Identity, error) {
	log := v.logger.With(zap.String("tokenSnippet", tokenSnippet(tokenString)))
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			log.Warn("Unexpected signing method", zap.Any("alg", token.Header["alg"]))
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		log.Debug("Failed to parse or verify token", zap.Error(err))
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return models.Identity{}, unauthorized(models.ErrTokenExpired)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return models.Identity{}, unauthorized(models.ErrTokenMalformed)
		}
		return models.Identity{}, unauthorized(fmt.Errorf("%w: %v", models.ErrTokenInvalid, err))
	}
	if !token.Valid {
		return models.Identity{}, unauthorized(models.ErrTokenInvalid)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		log.Warn("Token subject is not a user id", zap.String("sub", claims.Subject))
		return models.Identity{}, unauthorized(fmt.Errorf("%w: subject is not a user id", models.ErrTokenInvalid))
	}

	return models.Identity{
		UserID: userID,
		Email:  claims.Email,
		Roles:  rolesFrom(claims),
	}, nil
}

// rolesFrom merges app_metadata.roles with the top-level role. The generic
// "authenticated" role carries no permissions and is dropped.
func rolesFrom(c *Claims) []string {
	roles := make([]string, 0, len(c.AppMetadata.Roles)+1)
	seen := make(map[string]struct{})
	add := func(r string) {
		if r == "" || r == "authenticated" {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	for _, r := range c.AppMetadata.Roles {
		add(r)
	}
	add(c.Role)
	return roles
}

func unauthorized(err error) error {
	return fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
}

// tokenSnippet возвращает безопасную для логгирования часть токена.
func tokenSnippet(tokenString string) string {
	const limit = 15
	if len(tokenString) > limit {
		return tokenString[:limit] + "..."
	}
	return tokenString
}
