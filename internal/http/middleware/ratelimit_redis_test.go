package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	redisdb "tictactoe_live/internal/db"
	"tictactoe_live/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisRateLimitIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}

	client := redisdb.ConnectRedis(addr, os.Getenv("REDIS_PASSWORD"), db)
	if client == nil {
		t.Skip("redis not reachable")
	}
	InitRedisRateLimiter(client)
	defer func() {
		InitRedisRateLimiter(nil)
		_ = client.Close()
	}()

	// odd window so keys do not collide with other runs' windows
	window := 3 * time.Second
	limit := 2

	service.InitJWT("ratelimit-secret")
	token, err := service.GenerateJWT(1, "rl-"+strconv.FormatInt(time.Now().UnixNano(), 36))
	require.NoError(t, err)

	r := gin.New()
	r.GET("/test", RedisRateLimit(limit, window), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/move", OptionalJWT(), MoveRateLimit(limit, window), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	get := func() int {
		res, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		res.Body.Close()
		return res.StatusCode
	}
	for i := 0; i < limit; i++ {
		assert.Equal(t, http.StatusOK, get())
	}
	assert.Equal(t, http.StatusTooManyRequests, get())

	move := func() *http.Response {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/move", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		return res
	}
	first := move()
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "1", first.Header.Get("X-MoveRateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, move().StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, move().StatusCode)
}
