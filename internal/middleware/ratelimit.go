package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"tgads_go/internal/httputil"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter ограничивает частоту запросов отдельно для каждого клиента.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter: rps запросов в секунду на клиента; rps <= 0 отключает ограничение.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limiters: make(map[string]*clientLimiter), rps: limit, burst: burst, idle: 10 * time.Minute}
}

func (r *RateLimiter) allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cl, ok := r.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(r.rps, r.burst)}
		r.limiters[key] = cl
	}
	cl.seen = now
	if len(r.limiters) > 10000 {
		for k, v := range r.limiters {
			if now.Sub(v.seen) > r.idle {
				delete(r.limiters, k)
			}
		}
	}
	return cl.limiter.AllowN(now, 1)
}

// Middleware ключует клиентов по идентификатору пользователя, иначе по IP.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id := httputil.Party(c); id != 0 {
			key = "party:" + strconv.FormatInt(id, 10)
		}
		if !r.allow(key, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "слишком много запросов"})
			return
		}
		c.Next()
	}
}
