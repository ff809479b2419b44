package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired claim picked up by another worker is never released by us.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore implements ports.LockStore using Redis SET NX.
type LockStore struct {
	client *goredis.Client
	prefix string
	token  string
}

// NewLockStore creates a new Redis-backed lock store. Every lock taken
// through this instance carries the same owner token.
func NewLockStore(client *goredis.Client) *LockStore {
	return &LockStore{
		client: client,
		prefix: lockPrefix,
		token:  uuid.NewString(),
	}
}

// Acquire atomically claims key for ttl.
// Returns true if the claim is new, false if someone else holds it.
func (s *LockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := s.client.SetArgs(ctx, s.prefix+key, s.token, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis lock acquire: %w", err)
	}
	return result == "OK", nil
}

// Release drops a claim held by this store.
func (s *LockStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.prefix + key}, s.token).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("redis lock release: %w", err)
	}
	return nil
}
