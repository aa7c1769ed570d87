package processing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "filer/pkg/domain"
)

const claimKeyPrefix = "filer:claim:"

// releaseScript deletes the lease only if this worker still holds it, so a
// worker whose lease expired cannot release someone else's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaims leases filing ids across workers with SET NX PX.
type RedisClaims struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// RedisClaimsOption configures RedisClaims.
type RedisClaimsOption func(*RedisClaims)

func WithClaimsLogger(l *slog.Logger) RedisClaimsOption {
	return func(c *RedisClaims) { c.logger = l }
}

// NewRedisClaims constructs a Redis-backed claim store. The ttl bounds how
// long a crashed worker can block a filing.
func NewRedisClaims(client *redis.Client, ttl time.Duration, opts ...RedisClaimsOption) *RedisClaims {
	c := &RedisClaims{client: client, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *RedisClaims) Acquire(ctx context.Context, filingID id.FilingID) (func(), bool, error) {
	key := claimKeyPrefix + filingID.String()
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, key, token, c.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim filing %s: %w", filingID, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, c.client, []string{key}, token).Err(); err != nil {
			c.logger.Warn("failed to release filing claim", "filing_id", filingID.String(), "error", err)
		}
	}
	return release, true, nil
}
