package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter ограничивает число запросов с одного IP
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
	logger   *zap.Logger
}

// NewRateLimiter ограничивает каждый IP perMinute запросами в минуту
func NewRateLimiter(perMinute int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMinute,
		logger:   logger,
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMin)), rl.perMin)
		rl.limiters[ip] = l
	}
	return l
}

// Middleware отвечает 429, когда лимит IP исчерпан
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.limiter(ip).Allow() {
			rl.logger.Warn("Rate limit exceeded", zap.String("ip", ip))
			Abort(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
			return
		}
		c.Next()
	}
}
