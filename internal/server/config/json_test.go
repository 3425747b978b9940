package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_http": "www.example:9000",
		"database_dsn":       "postgres://db",
		"storage_backend":    "memory",
		"redis_addr":         "redis:6379",
		"profile_cache_ttl":  "1m",
		"token_hash_cost":    11,
		"log_backend":        "zap",
		"shutdown_timeout":   "30s",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "memory", cfg.StorageBackend)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, time.Minute, cfg.ProfileCacheTTL)
		assert.Equal(t, 11, cfg.TokenHashCost)
		assert.Equal(t, "zap", cfg.LogBackend)
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("absent keys keep defaults", func(t *testing.T) {
		partial := writeTempJSON(t, map[string]any{"redis_addr": "cache:6379"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "cache:6379", cfg.RedisAddr)
		assert.Equal(t, ":8069", cfg.EndpointAddrHTTP)
		assert.Equal(t, BackendPostgres, cfg.StorageBackend)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{EndpointAddrHTTP: "keep:1"}
		parseJson(cfg)
		assert.Equal(t, &Config{EndpointAddrHTTP: "keep:1"}, cfg)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", bad}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
