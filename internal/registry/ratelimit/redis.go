package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// Redis shares fixed windows between registry replicas.
type Redis struct {
	client  redis.Scripter
	limit   int
	window  time.Duration
	prefix  string
	timeout time.Duration
	script  *redis.Script
}

// NewRedis builds a limiter that stores its counters under prefix:key.
func NewRedis(client redis.Scripter, limit int, window time.Duration, prefix string) *Redis {
	return &Redis{
		client:  client,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		timeout: 250 * time.Millisecond,
		script:  redis.NewScript(rateLimitScript),
	}
}

// Allow returns true together with the error when redis is unreachable, so the
// registry keeps serving while its limiter is down.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 || l.window <= 0 || key == "" {
		return true, nil
	}
	redisKey := key
	if l.prefix != "" {
		redisKey = l.prefix + ":" + key
	}
	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{redisKey}, ttl, l.limit).Int64()
	if err != nil {
		return true, fmt.Errorf("rate limit script: %w", err)
	}
	return allowed == 1, nil
}
