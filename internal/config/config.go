// Package config loads process-level configuration: an optional YAML file
// provides a base, environment variables override it, matching the
// layering used across the example pack's services.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of process-level settings for the server.
type Config struct {
	ResourceDir         string        `yaml:"resource_dir"`
	Addr                string        `yaml:"addr"`
	MaxConcurrentParses int64         `yaml:"max_concurrent_parses"`
	TaskCacheEntries    int64         `yaml:"task_cache_entries"`
	TaskTTL             time.Duration `yaml:"-"`
	TaskTTLSeconds      int           `yaml:"task_ttl_seconds"`
	GzipChunks          bool          `yaml:"gzip_chunks"`
}

// Default returns a Config populated with the server's built-in defaults.
func Default() *Config {
	return &Config{
		ResourceDir:         ".",
		Addr:                "127.0.0.1:8080",
		MaxConcurrentParses: 4,
		TaskCacheEntries:    1000,
		TaskTTL:             time.Hour,
		TaskTTLSeconds:      3600,
		GzipChunks:          true,
	}
}

// Load reads a YAML file into a fresh Config seeded with defaults, then
// applies environment-variable overrides. filename may be empty, in which
// case only defaults and environment overrides apply.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", filename, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", filename, err)
		}
	}

	cfg.applyEnv()
	cfg.TaskTTL = time.Duration(cfg.TaskTTLSeconds) * time.Second
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ResourceDir = getEnv("VOXELGRID_RESOURCE_DIR", c.ResourceDir)
	c.Addr = getEnv("VOXELGRID_ADDR", c.Addr)
	c.MaxConcurrentParses = int64(getEnvInt("VOXELGRID_MAX_CONCURRENT_PARSES", int(c.MaxConcurrentParses)))
	c.TaskCacheEntries = int64(getEnvInt("VOXELGRID_TASK_CACHE_ENTRIES", int(c.TaskCacheEntries)))
	c.TaskTTLSeconds = getEnvInt("VOXELGRID_TASK_TTL_SECONDS", c.TaskTTLSeconds)
	c.GzipChunks = getEnvBool("VOXELGRID_GZIP_CHUNKS", c.GzipChunks)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
