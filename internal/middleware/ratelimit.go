package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/havenbridge/booking-api/internal/service"
	"github.com/havenbridge/booking-api/pkg/config"
	appErrors "github.com/havenbridge/booking-api/pkg/errors"
	"github.com/havenbridge/booking-api/pkg/response"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimit applies a per-client fixed-window limit backed by Redis to the
// public endpoints. The limiter fails open when Redis is unavailable so a
// cache outage never blocks bookings.
func RateLimit(client *redis.Client, cfg config.RateLimitConfig, metricsSvc *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if !cfg.Enabled || client == nil {
			c.Next()
			return
		}

		key := "rl:" + c.ClientIP()
		res, err := fixedWindowScript.Run(c.Request.Context(), client, []string{key}, cfg.Window.Milliseconds()).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		count, err := parseScriptCount(res)
		if err != nil {
			logger.Warn("rate limiter returned unexpected result", zap.Error(err))
			c.Next()
			return
		}

		if count > int64(cfg.Limit) {
			if metricsSvc != nil {
				metricsSvc.RateLimited.Inc()
			}
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window/time.Second)))
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

func parseScriptCount(res interface{}) (int64, error) {
	switch v := res.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}
