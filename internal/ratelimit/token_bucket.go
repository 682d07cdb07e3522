package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes from a per-key bucket atomically.
// KEYS[1] bucket key, ARGV: rate per second, burst, now (unix micro), cost.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'updated_at')
local tokens = tonumber(bucket[1])
local updated_at = tonumber(bucket[2])

if tokens == nil then
  tokens = burst
  updated_at = now
end

local elapsed = math.max(0, now - updated_at) / 1000000
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'updated_at', now)
redis.call('PEXPIRE', key, math.ceil(burst / rate * 2000))

return allowed
`)

// Limiter is a Redis token bucket shared across instances. A nil client
// disables limiting, which keeps single-node deployments and tests simple.
type Limiter struct {
	client *redis.Client
	rate   float64
	burst  int
	prefix string
}

func NewLimiter(client *redis.Client, prefix string, rate float64, burst int) *Limiter {
	return &Limiter{
		client: client,
		rate:   rate,
		burst:  burst,
		prefix: prefix,
	}
}

// Allow reports whether one request for the key fits in the bucket.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil || l.rate <= 0 {
		return true, nil
	}

	allowed, err := tokenBucketScript.Run(ctx, l.client,
		[]string{l.prefix + ":" + key},
		l.rate,
		l.burst,
		time.Now().UnixMicro(),
		1,
	).Int()
	if err != nil {
		// Redis being down must not take tracking down with it.
		return true, err
	}
	return allowed == 1, nil
}
