package redis

import (
	"context"
	"fmt"
	"time"

	"multi-merchant-settlement/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Every key this service writes lives under one namespace so a shared Redis
// can be inspected or flushed per service.
const (
	keyNamespace     = "mms:"
	lockPrefix       = keyNamespace + "lock:"
	settlementPrefix = keyNamespace + "settlement:"
	rateLimitPrefix  = keyNamespace + "ratelimit:"
	healthKey        = keyNamespace + "health"
)

// ClientOptions maps config onto go-redis options. Lock and claim traffic
// is latency sensitive, so reads and writes fail fast instead of waiting out
// a checkout.
func ClientOptions(cfg config.RedisConfig) *goredis.Options {
	return &goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(ClientOptions(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Str("namespace", keyNamespace).
		Msg("Redis connection established")

	return client, nil
}
