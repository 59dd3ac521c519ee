// Package config reads the server configuration from IMAGEOPT_* environment
// variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"

	"github.com/ironsheep/image-optimizer/internal/cdn"
	"github.com/ironsheep/image-optimizer/internal/optimizer"
)

// Prefix is prepended to every variable name.
const Prefix = "IMAGEOPT_"

// Config is the full server configuration.
//
//	IMAGEOPT_LOG_LEVEL            debug, info, warn or error (default info)
//	IMAGEOPT_CACHE_SIZE           source files kept in memory (default 32)
//	IMAGEOPT_METRICS_ADDR         serve Prometheus metrics on this address
//	IMAGEOPT_POOL_SIZE            worker count (default min(4, GOMAXPROCS))
//	IMAGEOPT_POOL_QUEUE_SIZE      queued task limit
//	IMAGEOPT_POOL_DISABLED        process inline without workers
//	IMAGEOPT_BLOB_ORIGIN          origin embedded in blob: URLs
//	IMAGEOPT_MAX_PIXELS           reject larger inputs before decoding (default 100000000)
//	IMAGEOPT_CDN_PROVIDER         cloudinary, imagekit, cloudflare or custom
//	IMAGEOPT_CDN_*_BASE_URL       per-provider base URLs
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	CacheSize   int    `env:"CACHE_SIZE" envDefault:"32"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:""`

	Optimizer optimizer.Config
	CDN       cdn.Config `envPrefix:"CDN_"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the environment parser cannot catch.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid %sLOG_LEVEL: %w", Prefix, err)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("invalid %sCACHE_SIZE: %d", Prefix, c.CacheSize)
	}
	if c.Optimizer.MaxPixels < 0 {
		return fmt.Errorf("invalid max pixels %d", c.Optimizer.MaxPixels)
	}
	if c.Optimizer.Pool.Size < 0 || c.Optimizer.Pool.QueueSize < 0 {
		return fmt.Errorf("invalid pool size %d / queue %d", c.Optimizer.Pool.Size, c.Optimizer.Pool.QueueSize)
	}
	if _, err := cdn.ParseProvider(string(c.CDN.Provider)); err != nil {
		return fmt.Errorf("invalid %sCDN_PROVIDER: %w", Prefix, err)
	}
	return nil
}
