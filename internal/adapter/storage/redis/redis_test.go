package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"multi-merchant-settlement/config"
	"multi-merchant-settlement/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitAddr(t *testing.T, s *miniredis.Miniredis) config.RedisConfig {
	t.Helper()
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	return config.RedisConfig{Host: s.Host(), Port: port}
}

func TestClientOptions(t *testing.T) {
	opts := ClientOptions(config.RedisConfig{Host: "redis.example.com", Port: 6380, Password: "pw", DB: 2})

	assert.Equal(t, "redis.example.com:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}

func TestNewClient_Connects(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), splitAddr(t, s), logger.New("error", false))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := splitAddr(t, s)
	s.Close()

	_, err := NewClient(context.Background(), cfg, logger.New("error", false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinging redis")
}

func TestHealthCheck(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	defer client.Close()

	h := NewHealthCheck(client)
	assert.Equal(t, "redis", h.Name())
	require.NoError(t, h.Ping(context.Background()))
	assert.True(t, s.Exists(healthKey))

	s.Close()
	assert.Error(t, h.Ping(context.Background()))
}
