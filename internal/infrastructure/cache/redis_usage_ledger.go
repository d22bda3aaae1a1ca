package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/redis/go-redis/v9"
)

// RedisUsageLedger implements entitlement.UsageLedger on Redis.
// This is suitable for distributed deployments where multiple instances
// need to share usage state without a relational database in the hot path.
type RedisUsageLedger struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// tryIncrementScript performs the increment-if-below-limit check and the
// increment in one atomic step. KEYS[1] is the counter, ARGV[1] the max
// (-1 means unlimited). Returns the new value on success, -1 on denial.
var tryIncrementScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if max >= 0 and used >= max then
	return -1
end
return redis.call('INCR', KEYS[1])
`)

// NewRedisUsageLedger creates a new Redis-based usage ledger
func NewRedisUsageLedger(cfg RedisConfig) (*RedisUsageLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisUsageLedger{
		client:    client,
		keyPrefix: "entitlement:usage:",
	}, nil
}

// NewRedisUsageLedgerWithClient creates a ledger with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisUsageLedgerWithClient(client *redis.Client, keyPrefix string) *RedisUsageLedger {
	if keyPrefix == "" {
		keyPrefix = "entitlement:usage:"
	}
	return &RedisUsageLedger{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Used returns the counter value for the period, 0 if no counter exists yet
func (s *RedisUsageLedger) Used(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string) (int64, error) {
	used, err := s.client.Get(ctx, s.key(accountID, feature, periodKey)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return used, nil
}

// TryIncrement atomically increments the counter if the result stays within max.
// The check and the increment run as one Lua script, so concurrent commits
// from any number of instances serialize inside Redis.
func (s *RedisUsageLedger) TryIncrement(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string, max int64) (bool, error) {
	result, err := tryIncrementScript.Run(ctx, s.client, []string{s.key(accountID, feature, periodKey)}, max).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return result >= 0, nil
}

// SetCount overwrites the counter with an externally recomputed value
func (s *RedisUsageLedger) SetCount(ctx context.Context, accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string, value int64) error {
	if err := s.client.Set(ctx, s.key(accountID, feature, periodKey), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set usage counter: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisUsageLedger) Close() error {
	return s.client.Close()
}

func (s *RedisUsageLedger) key(accountID uuid.UUID, feature entitlement.FeatureKey, periodKey string) string {
	return s.keyPrefix + accountID.String() + ":" + string(feature) + ":" + periodKey
}

// Ensure RedisUsageLedger implements the interface
var _ entitlement.UsageLedger = (*RedisUsageLedger)(nil)
