// Package config loads cachestore settings from YAML. Env overrides take
// precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the immutable configuration surface: one bucket, one segment
// namespace, one set of transport settings. Fixed before the store is
// constructed and never mutated afterward.
type Config struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Region     string `yaml:"region"`
	PathStyle  bool   `yaml:"path_style"`
	Bucket     string `yaml:"bucket"`
	Segment    string `yaml:"segment"`
	PartSizeMB int    `yaml:"part_size_mb"`
	TimeoutMS  int    `yaml:"timeout_ms"`
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
}

// Load reads config from path. A missing file uses defaults; env overrides
// (CACHESTORE_ENDPOINT, _ACCESS_KEY, _SECRET_KEY, _REGION, _PATH_STYLE,
// _BUCKET, _SEGMENT, _PART_SIZE_MB, _TIMEOUT_MS) apply last.
func Load(path string) (*Config, error) {
	c := &Config{
		Region:     "us-east-1",
		PartSizeMB: 8,
		TimeoutMS:  60000,
		LogLevel:   "info",
	}

	b, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(c)

	if c.Bucket == "" {
		return nil, fmt.Errorf("bucket not configured")
	}
	if c.Segment == "" {
		return nil, fmt.Errorf("segment not configured")
	}
	if c.PartSizeMB <= 0 {
		c.PartSizeMB = 8
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 60000
	}

	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("CACHESTORE_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("CACHESTORE_ACCESS_KEY"); v != "" {
		c.AccessKey = v
	}
	if v := os.Getenv("CACHESTORE_SECRET_KEY"); v != "" {
		c.SecretKey = v
	}
	if v := os.Getenv("CACHESTORE_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("CACHESTORE_PATH_STYLE"); v != "" {
		c.PathStyle = v == "true" || v == "1"
	}
	if v := os.Getenv("CACHESTORE_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("CACHESTORE_SEGMENT"); v != "" {
		c.Segment = v
	}
	if v := os.Getenv("CACHESTORE_PART_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PartSizeMB = n
		}
	}
	if v := os.Getenv("CACHESTORE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutMS = n
		}
	}
}

// PartSize returns the multipart part size in bytes.
func (c *Config) PartSize() int64 {
	return int64(c.PartSizeMB) << 20
}

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
