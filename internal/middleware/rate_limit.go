package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"tale-forge/internal/models"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RateLimitConfig struct {
	Requests uint
	Window   time.Duration
}

// RateLimiter ограничивает число запросов на пользователя (или IP для
// анонимных) в фиксированном окне. Счетчики хранятся в Redis.
func RateLimiter(client *redis.Client, cfg RateLimitConfig, respond ErrorResponder, logger *zap.Logger) gin.HandlerFunc {
	store := ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: client,
		Rate:        cfg.Window,
		Limit:       cfg.Requests,
	})
	return rateLimiterWithStore(store, respond, logger)
}

func rateLimiterWithStore(store ratelimit.Store, respond ErrorResponder, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("RateLimiter")
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			retryAfter := int(math.Ceil(time.Until(info.ResetTime).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			log.Warn("Rate limit exceeded",
				zap.String("key", rateLimitKey(c)),
				zap.String("path", c.Request.URL.Path),
				zap.Time("resetTime", info.ResetTime))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			respond(c, fmt.Errorf("%w: retry in %ds", models.ErrRateLimited, retryAfter))
		},
		KeyFunc: rateLimitKey,
	})
}

func rateLimitKey(c *gin.Context) string {
	if id, ok := IdentityFromGin(c); ok {
		return "user:" + id.UserID.String()
	}
	return "ip:" + c.ClientIP()
}
