package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const rateLimitWindow = time.Second

// RateLimit allows at most qps requests per second per client IP and scope,
// counted in Redis. A nil client disables limiting.
func RateLimit(redisClient *redis.Client, scope string, qps int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		key := "rate_limit:" + scope + ":" + c.ClientIP()
		ctx := c.Request.Context()

		count, err := incrementWindow(ctx, redisClient, key)
		if err != nil {
			// fail open while Redis is unreachable
			log.Printf("Rate limiter unavailable: %v", err)
			c.Next()
			return
		}

		if count > int64(qps) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "RATE_LIMITED",
						"message": "Too many requests, please try again later",
					},
				})
				return
			}
			c.String(http.StatusTooManyRequests, "Too many requests, please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// incrementWindow counts a request in key and makes sure the key expires.
// A key left without a TTL is given one on the next request.
func incrementWindow(ctx context.Context, redisClient *redis.Client, key string) (int64, error) {
	pipe := redisClient.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	if ttl.Val() < 0 {
		if err := redisClient.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
			log.Printf("Failed to set rate limit window on %s: %v", key, err)
			if delErr := redisClient.Del(ctx, key).Err(); delErr != nil {
				return 0, delErr
			}
		}
	}

	return incr.Val(), nil
}
