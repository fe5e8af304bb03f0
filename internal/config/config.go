// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSources is the built-in feed list, processed in this order.
var DefaultSources = []string{
	"https://www.net-empregos.com/rss.asp",
	"https://www.itjobs.pt/feed",
	"https://euraxess.ec.europa.eu/jobs/feed",
	"https://www.fct.pt/feed/",
}

// Config holds all runtime configuration for the discovery service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string // empty disables Redis events
	NATSURL     string // empty disables NATS events
	AutoMigrate bool

	Feed   FeedConfig
	Ingest IngestConfig
}

// FeedConfig tunes the feed fetcher.
type FeedConfig struct {
	Sources     []string
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

// IngestConfig tunes the ingestion cycle and its triggers.
type IngestConfig struct {
	PerSourceCap    int
	Interval        time.Duration
	BatchTimeout    time.Duration
	OnDemandTimeout time.Duration
	BlockedTerms    []string
	RunOnStart      bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discovery_port", "8081")
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("feed_sources", strings.Join(DefaultSources, ","))
	v.SetDefault("feed_user_agent", "ADLUC-JobBot/1.0 (+https://adluc.pt/bot)")
	v.SetDefault("feed_timeout", "12s")
	v.SetDefault("feed_max_attempts", 3)
	v.SetDefault("feed_backoff_base", "500ms")
	v.SetDefault("ingest_per_source_cap", 8)
	v.SetDefault("ingest_interval", "30m")
	v.SetDefault("ingest_batch_timeout", "2m")
	v.SetDefault("ingest_on_demand_timeout", "5s")
	v.SetDefault("ingest_blocked_terms", "")
	v.SetDefault("ingest_run_on_start", true)
}

// Load reads an optional .env file and the environment and returns a
// validated Config.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	for _, key := range []string{"database_url", "redis_url", "nats_url"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	dbURL := v.GetString("database_url")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	sources := splitList(v.GetString("feed_sources"))
	if len(sources) == 0 {
		return nil, errors.New("FEED_SOURCES must list at least one feed URL")
	}
	for _, s := range sources {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("FEED_SOURCES contains an invalid URL %q", s)
		}
	}

	cfg := &Config{
		Port:        v.GetString("discovery_port"),
		DatabaseURL: dbURL,
		RedisURL:    v.GetString("redis_url"),
		NATSURL:     v.GetString("nats_url"),
		AutoMigrate: v.GetBool("db_auto_migrate"),
		Feed: FeedConfig{
			Sources:     sources,
			UserAgent:   v.GetString("feed_user_agent"),
			Timeout:     v.GetDuration("feed_timeout"),
			MaxAttempts: v.GetInt("feed_max_attempts"),
			BackoffBase: v.GetDuration("feed_backoff_base"),
		},
		Ingest: IngestConfig{
			PerSourceCap:    v.GetInt("ingest_per_source_cap"),
			Interval:        v.GetDuration("ingest_interval"),
			BatchTimeout:    v.GetDuration("ingest_batch_timeout"),
			OnDemandTimeout: v.GetDuration("ingest_on_demand_timeout"),
			BlockedTerms:    splitList(v.GetString("ingest_blocked_terms")),
			RunOnStart:      v.GetBool("ingest_run_on_start"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Feed.Timeout <= 0:
		return errors.New("FEED_TIMEOUT must be a positive duration")
	case c.Feed.MaxAttempts < 1:
		return fmt.Errorf("FEED_MAX_ATTEMPTS must be at least 1, got %d", c.Feed.MaxAttempts)
	case c.Feed.BackoffBase < 0:
		return errors.New("FEED_BACKOFF_BASE must not be negative")
	case c.Ingest.PerSourceCap < 1:
		return fmt.Errorf("INGEST_PER_SOURCE_CAP must be at least 1, got %d", c.Ingest.PerSourceCap)
	case c.Ingest.Interval < time.Minute:
		return fmt.Errorf("INGEST_INTERVAL must be at least 1m, got %s", c.Ingest.Interval)
	case c.Ingest.BatchTimeout <= 0:
		return errors.New("INGEST_BATCH_TIMEOUT must be a positive duration")
	case c.Ingest.OnDemandTimeout <= 0:
		return errors.New("INGEST_ON_DEMAND_TIMEOUT must be a positive duration")
	}
	return nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
