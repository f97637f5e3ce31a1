package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientWindow struct {
	start time.Time
	count int
}

// localLimiter is a fixed-window counter kept in process memory. Windows
// that have expired are swept at most once per window.
type localLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	max       int
	window    time.Duration
	lastSweep time.Time
}

func newLocalLimiter(maxRequests int, window time.Duration) *localLimiter {
	return &localLimiter{
		clients: make(map[string]*clientWindow),
		max:     maxRequests,
		window:  window,
	}
}

func (l *localLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		for k, cw := range l.clients {
			if now.Sub(cw.start) > l.window {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	cw, ok := l.clients[key]
	if !ok || now.Sub(cw.start) > l.window {
		l.clients[key] = &clientWindow{start: now, count: 1}
		return true
	}
	cw.count++
	return cw.count <= l.max
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := newLocalLimiter(maxRequests, window)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP(), time.Now()) {
			RLBlocked.WithLabelValues(c.FullPath(), "local").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath(), "local").Inc()
		c.Next()
	}
}
