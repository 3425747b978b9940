package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophmsg/internal/flagx"
	"github.com/dmitrijs2005/gophmsg/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	StorageBackend   string         `json:"storage_backend"`
	RedisAddr        string         `json:"redis_addr"`
	ProfileCacheTTL  timex.Duration `json:"profile_cache_ttl"`
	TokenHashCost    int            `json:"token_hash_cost"`
	LogBackend       string         `json:"log_backend"`
	ShutdownTimeout  timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays values from the file named by -c/-config. Keys absent
// from the file keep their current value. A missing flag means nothing is
// loaded; an unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.StorageBackend != "" {
		config.StorageBackend = c.StorageBackend
	}
	if c.RedisAddr != "" {
		config.RedisAddr = c.RedisAddr
	}
	if c.ProfileCacheTTL.Duration != 0 {
		config.ProfileCacheTTL = c.ProfileCacheTTL.Duration
	}
	if c.TokenHashCost != 0 {
		config.TokenHashCost = c.TokenHashCost
	}
	if c.LogBackend != "" {
		config.LogBackend = c.LogBackend
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}
