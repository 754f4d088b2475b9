package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prixscout/models"
	"golang.org/x/time/rate"
)

const (
	// bucketIdle is how long a caller's bucket survives without requests.
	bucketIdle = time.Hour
	// sweepEvery is the minimum gap between idle-bucket sweeps.
	sweepEvery = 5 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per caller for a class of routes. Route
// classes that cost different amounts upstream get separate Limiters, so a
// caller can exhaust the browser budget and still use the static routes.
//
// Idle buckets are dropped lazily while serving requests; there is no
// background goroutine.
type Limiter struct {
	name  string
	limit rate.Limit
	burst int

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiter creates a Limiter allowing rps sustained requests and burst
// extra per caller. name identifies the route class in logs.
func NewLimiter(name string, rps float64, burst int) *Limiter {
	return &Limiter{
		name:      name,
		limit:     rate.Limit(rps),
		burst:     max(burst, 1),
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow takes one token for identity. When none is available it reports
// how long until one will be.
func (l *Limiter) Allow(identity string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweepLocked(now)
	}
	b, ok := l.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[identity] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Len reports how many callers currently hold a bucket.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-bucketIdle)
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
	l.lastSweep = now
}

// RateLimit rejects requests over l's budget with 429 and a Retry-After in
// whole seconds. The caller is the API key when Auth ran, otherwise the
// client IP.
func RateLimit(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.GetString(APIKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		ok, wait := l.Allow(identity)
		if !ok {
			retry := max(int(math.Ceil(wait.Seconds())), 1)
			slog.Warn("request rate limited",
				"code", models.ErrCodeRateLimited,
				"limiter", l.name,
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
				"retry_after", retry,
			)
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: "Too many requests",
			})
			return
		}

		c.Next()
	}
}
