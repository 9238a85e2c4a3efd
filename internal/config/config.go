package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/vidfriends/linkresolver/internal/resolver"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "RESOLVER"

// Config captures the runtime configuration for the link resolver service.
type Config struct {
	AppPort         int
	LogLevel        string
	DatabaseURL     string
	MigrationDir    string
	Provider        resolver.ProviderConfig
	HTTPTimeout     time.Duration
	FuzzyExtensions []string
	CacheTTL        time.Duration
	RedisURL        string
	AdminTokenHash  string
	RateLimit       RateLimitConfig
	Archive         ArchiveConfig
	ObjectStore     ObjectStoreConfig
}

// RateLimitConfig bounds how often a client IP may call the resolve endpoint.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// ArchiveConfig sizes the worker pool that uploads unresolved responses.
type ArchiveConfig struct {
	Enabled   bool
	QueueSize int
	Workers   int
}

// ObjectStoreConfig locates the S3-compatible bucket used by the archive.
type ObjectStoreConfig struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

var defaults = map[string]any{
	"port":                  8080,
	"log_level":             "info",
	"database_url":          "",
	"migrations":            "migrations",
	"provider.api_key":      "",
	"provider.api_host":     "social-media-video-downloader.p.rapidapi.com",
	"provider.base_url":     "https://social-media-video-downloader.p.rapidapi.com/smvd/get/all",
	"provider.method":       "GET",
	"provider.use_proxy":    false,
	"provider.proxy":        "",
	"http_timeout":          "30s",
	"fuzzy_extensions":      "mp4",
	"cache_ttl":             "0s",
	"redis_url":             "",
	"admin_token_hash":      "",
	"rate_limit.requests":   30,
	"rate_limit.window":     "1m",
	"rate_limit.burst":      10,
	"archive.enabled":       false,
	"archive.queue_size":    16,
	"archive.workers":       1,
	"object_store.bucket":   "",
	"object_store.region":   "us-east-1",
	"object_store.endpoint": "",
	"object_store.prefix":   "unresolved",
}

// Load reads configuration from RESOLVER_* environment variables and an
// optional linkresolver.{yaml,toml,json} file in the working directory or
// /etc/linkresolver, applying defaults suited to local development.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("linkresolver")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/linkresolver")
	return load(v, false)
}

// LoadFile is Load with an explicit configuration file.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v, true)
}

func load(v *viper.Viper, requireFile bool) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if requireFile || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	method, err := resolver.ParseMethod(v.GetString("provider.method"))
	if err != nil {
		return Config{}, fmt.Errorf("provider.method: %w", err)
	}

	cfg := Config{
		AppPort:      v.GetInt("port"),
		LogLevel:     v.GetString("log_level"),
		DatabaseURL:  v.GetString("database_url"),
		MigrationDir: v.GetString("migrations"),
		Provider: resolver.ProviderConfig{
			APIKey:        v.GetString("provider.api_key"),
			APIHost:       v.GetString("provider.api_host"),
			BaseURL:       v.GetString("provider.base_url"),
			Method:        method,
			UseProxy:      v.GetBool("provider.use_proxy"),
			ProxyEndpoint: v.GetString("provider.proxy"),
		},
		FuzzyExtensions: splitList(v.GetString("fuzzy_extensions")),
		RedisURL:        v.GetString("redis_url"),
		AdminTokenHash:  v.GetString("admin_token_hash"),
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("rate_limit.requests"),
			Burst:    v.GetInt("rate_limit.burst"),
		},
		Archive: ArchiveConfig{
			Enabled:   v.GetBool("archive.enabled"),
			QueueSize: v.GetInt("archive.queue_size"),
			Workers:   v.GetInt("archive.workers"),
		},
		ObjectStore: ObjectStoreConfig{
			Bucket:   v.GetString("object_store.bucket"),
			Region:   v.GetString("object_store.region"),
			Endpoint: v.GetString("object_store.endpoint"),
			Prefix:   v.GetString("object_store.prefix"),
		},
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"http_timeout", &cfg.HTTPTimeout},
		{"cache_ttl", &cfg.CacheTTL},
		{"rate_limit.window", &cfg.RateLimit.Window},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if cfg.Archive.Enabled && strings.TrimSpace(cfg.ObjectStore.Bucket) == "" {
		return Config{}, errors.New("archive.enabled requires object_store.bucket")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	parts := lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Compact(parts)
}
