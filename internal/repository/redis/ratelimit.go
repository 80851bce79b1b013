package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set keyed per bucket. Expired hits are
// trimmed, the current hit is recorded, and the decision plus the wait until
// the oldest hit leaves the window come back in one round trip.
//
// KEYS[1] bucket, ARGV = now_ms, window_ms, max_hits, hit_id.
const entryLimitScript = `
local bucket = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local max_hits = tonumber(ARGV[3])
local hit_id = ARGV[4]

redis.call('ZREMRANGEBYSCORE', bucket, 0, now_ms - window_ms)
redis.call('ZADD', bucket, 'NX', now_ms, hit_id)
redis.call('PEXPIRE', bucket, window_ms)

local hits = redis.call('ZCARD', bucket)
if hits > max_hits then
  local oldest = redis.call('ZRANGE', bucket, 0, 0, 'WITHSCORES')
  local oldest_ms = tonumber(oldest[2]) or (now_ms - window_ms)
  local wait_ms = window_ms - (now_ms - oldest_ms)
  if wait_ms < 0 then wait_ms = 0 end
  return {0, hits, wait_ms}
end
return {1, hits, 0}
`

// EntryLimiter throttles session starts so a single client cannot drain a
// facility's lots by hammering the entry endpoint.
type EntryLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	script *redis.Script
}

func NewEntryLimiter(rdb *redis.Client, limit int, window time.Duration) *EntryLimiter {
	return &EntryLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		script: redis.NewScript(entryLimitScript),
	}
}

// LimitDecision is the outcome of one rate-limit check.
type LimitDecision struct {
	Allowed    bool
	Hits       int64
	RetryAfter time.Duration
}

// AllowIP checks and records one session-start attempt from the given client
// address.
func (l *EntryLimiter) AllowIP(ctx context.Context, ip string) (LimitDecision, error) {
	return l.allow(ctx, KeyEntryLimit("ip:"+ip))
}

func (l *EntryLimiter) allow(ctx context.Context, key string) (LimitDecision, error) {
	nowMs := time.Now().UnixMilli()

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{key},
		nowMs, l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Result()
	if err != nil {
		return LimitDecision{}, err
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return LimitDecision{}, fmt.Errorf("entry limiter: bad script result: %v", res)
	}

	return LimitDecision{
		Allowed:    asInt64(arr[0]) == 1,
		Hits:       asInt64(arr[1]),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		var x int64
		fmt.Sscan(t, &x)
		return x
	default:
		return 0
	}
}
