package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-task-tracker/pkg/response"
)

// ipFromCtx returns the address chosen by RealIP, or "unknown".
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath limits by client IP per route template.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		return "rl:path:" + route + ":ip:" + ipFromCtx(c)
	}
}

type AllowFunc func(*gin.Context) bool // return true for bypass limit

// hitScript counts one request in a fixed window and returns the count with
// the window's remaining milliseconds.
var hitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type window struct {
	count int64
	reset time.Duration
}

func hit(ctx context.Context, rdb *redis.Client, key string, size time.Duration) (window, error) {
	res, err := hitScript.Run(ctx, rdb, []string{key}, size.Milliseconds()).Int64Slice()
	if err != nil {
		return window{}, err
	}
	if len(res) == 0 {
		return window{}, redis.Nil
	}
	w := window{count: res[0]}
	if len(res) > 1 && res[1] > 0 {
		w.reset = time.Duration(res[1]) * time.Millisecond
	}
	return w, nil
}

// RateLimit is a fixed-window limiter shared through Redis. It is a no-op
// without a client and fails open when Redis errors. Preflight requests are
// never counted.
func RateLimit(rdb *redis.Client, max int, size time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || max <= 0 || size <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	limit := strconv.Itoa(max)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		w, err := hit(c.Request.Context(), rdb, keyFn(c), size)
		if err != nil {
			c.Next()
			return
		}

		resetSec := int((w.reset + time.Second - 1) / time.Second)
		remaining := int64(max) - w.count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if w.count > int64(max) {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error(c, http.StatusTooManyRequests, "too many requests, please try again later", nil)
			return
		}
		c.Next()
	}
}
