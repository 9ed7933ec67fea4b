package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/cerberus/pkg/config"
)

func TestNewStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name      string
		cfg       *config.RateLimitConfig
		wantErr   error
		wantRedis bool
	}{
		{
			name: "memory backend",
			cfg:  &config.RateLimitConfig{StorageBackend: config.StorageBackendMemory},
		},
		{
			name: "empty backend defaults to memory",
			cfg:  &config.RateLimitConfig{},
		},
		{
			name: "shared backend",
			cfg: &config.RateLimitConfig{
				StorageBackend:       config.StorageBackendShared,
				SharedBackendAddress: mr.Addr(),
			},
			wantRedis: true,
		},
		{
			name: "shared backend with redis url",
			cfg: &config.RateLimitConfig{
				StorageBackend:       config.StorageBackendShared,
				SharedBackendAddress: "redis://" + mr.Addr() + "/0",
			},
			wantRedis: true,
		},
		{
			name:    "shared backend without address",
			cfg:     &config.RateLimitConfig{StorageBackend: config.StorageBackendShared},
			wantErr: ErrSharedAddressRequired,
		},
		{
			name:    "unknown backend",
			cfg:     &config.RateLimitConfig{StorageBackend: "cluster"},
			wantErr: ErrUnknownBackend,
		},
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: ErrConfigRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.cfg)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer func() { _ = store.Close() }()

			_, isRedis := store.(*RedisStore)
			assert.Equal(t, tt.wantRedis, isRedis, "unexpected store type %T", store)
		})
	}
}

func TestNewStore_SharedBackendUnreachableIsNotFatal(t *testing.T) {
	// The backend may come up after the gateway; construction degrades
	// instead of failing.
	store, err := NewStore(&config.RateLimitConfig{
		StorageBackend:       config.StorageBackendShared,
		SharedBackendAddress: "127.0.0.1:1",
		OperationTimeout:     config.DefaultOperationTimeout,
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	result, err := store.CheckAndIncrement(context.Background(), "k", 1, WindowMinute.Duration(), testBase)
	require.NoError(t, err, "the fallback should serve the check")
	assert.True(t, result.Allowed, "the fallback should admit the first request")
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr, "plain address should pass through")

	opts, err = redisOptions("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = redisOptions("unix-what://%%bad")
	assert.Error(t, err, "a malformed url should be rejected")
}

func TestNewRateLimiterFromConfig(t *testing.T) {
	// Disabled limiting yields no limiter at all.
	limiter, err := NewRateLimiterFromConfig(&config.RateLimitConfig{Enabled: config.BoolPtr(false)})
	require.NoError(t, err)
	assert.Nil(t, limiter, "a disabled config should produce no limiter")

	limiter, err = NewRateLimiterFromConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, limiter, "a nil config should produce no limiter")

	// A default config produces a working memory-backed limiter.
	cfg := &config.RateLimitConfig{}
	cfg.SetDefaults()
	limiter, err = NewRateLimiterFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, limiter, "an enabled config should produce a limiter")
	defer func() { _ = limiter.Close() }()

	decision := limiter.Evaluate(context.Background(), testRequest("alice"))
	assert.True(t, decision.Allowed, "the first request should be admitted")
	assert.Equal(t, config.DefaultRequestsPerMinute, decision.Limit)
}
