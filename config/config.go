// Package config loads the autosearch configuration: compiled-in
// defaults first, then an optional JSON config file, then AUTOSEARCH_
// environment variables, each layer overriding the one before.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/viper"

	"github.com/OpenChatGit/autosearch/internal/formatter"
	"github.com/OpenChatGit/autosearch/internal/rag"
	"github.com/OpenChatGit/autosearch/tools/web_scrape"
	"github.com/OpenChatGit/autosearch/tools/web_search"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config is the full runtime configuration.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Search    SearchConfig    `mapstructure:"search"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	RAG       rag.Config      `mapstructure:"rag"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	LogTime bool `mapstructure:"log_time"`
}

// SearchConfig drives the decision layer and the engine executors.
type SearchConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Engines           []string      `mapstructure:"engines"`
	MaxResults        int           `mapstructure:"max_results"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	OutputFormat      string        `mapstructure:"output_format"`
	MaxContextLength  int           `mapstructure:"max_context_length"`
}

func (c SearchConfig) Validate() error {
	if len(c.Engines) == 0 {
		return errors.New("config: search.engines must name at least one engine")
	}
	for _, name := range c.Engines {
		switch web_search.EngineName(name) {
		case web_search.EngineDuckDuckGo, web_search.EngineDuckDuckGoLite:
		default:
			return fmt.Errorf("config: unknown search engine %q", name)
		}
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("config: search.max_results %d must be at least 1", c.MaxResults)
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("config: search.requests_per_minute %d must be at least 1", c.RequestsPerMinute)
	}
	if c.Timeout <= 0 {
		return errors.New("config: search.timeout must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: search.max_retries %d must be at least 1", c.MaxRetries)
	}
	if _, err := formatter.ParseFormat(c.OutputFormat); err != nil {
		return fmt.Errorf("config: search.output_format: %w", err)
	}
	if c.MaxContextLength < 100 {
		return fmt.Errorf("config: search.max_context_length %d must be at least 100", c.MaxContextLength)
	}
	return nil
}

// ScrapeConfig bounds content acquisition.
type ScrapeConfig struct {
	Fetcher       string        `mapstructure:"fetcher"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	MaxChars      int           `mapstructure:"max_chars"`
	UserAgent     string        `mapstructure:"user_agent"`
}

func (c ScrapeConfig) Validate() error {
	switch web_scrape.FetcherType(c.Fetcher) {
	case web_scrape.HTTPFetcherType, web_scrape.ChromedpFetcherType:
	default:
		return fmt.Errorf("config: unknown scrape fetcher %q", c.Fetcher)
	}
	if c.Timeout <= 0 {
		return errors.New("config: scrape.timeout must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: scrape.max_retries %d must be at least 1", c.MaxRetries)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("config: scrape.max_concurrent %d must be at least 1", c.MaxConcurrent)
	}
	if c.MaxChars < 1 {
		return fmt.Errorf("config: scrape.max_chars %d must be at least 1", c.MaxChars)
	}
	return nil
}

// CacheConfig selects and bounds the context cache.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
	MaxBytes      int64         `mapstructure:"max_bytes"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepCron     string        `mapstructure:"sweep_cron"`
}

func (c CacheConfig) Validate() error {
	switch c.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Backend)
	}
	if c.TTL <= 0 {
		return errors.New("config: cache.ttl must be positive")
	}
	if c.MaxEntries < 1 {
		return fmt.Errorf("config: cache.max_entries %d must be at least 1", c.MaxEntries)
	}
	if c.MaxBytes < 1 {
		return fmt.Errorf("config: cache.max_bytes %d must be at least 1", c.MaxBytes)
	}
	if c.SweepInterval <= 0 {
		return errors.New("config: cache.sweep_interval must be positive")
	}
	if c.SweepCron != "" {
		if _, err := cronexpr.Parse(c.SweepCron); err != nil {
			return fmt.Errorf("config: cache.sweep_cron: %w", err)
		}
	}
	return nil
}

// RedisConfig locates the shared cache backend.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

func (c ServerConfig) Validate() error {
	if c.Listen == "" {
		return errors.New("config: server.listen must not be empty")
	}
	return nil
}

// TelemetryConfig toggles the Prometheus endpoint.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate checks every section; the first problem wins.
func (c *Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Scrape.Validate(); err != nil {
		return err
	}
	if err := c.RAG.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.Cache.Backend == CacheBackendRedis && c.Redis.Addr == "" {
		return errors.New("config: cache backend redis requires redis.addr")
	}
	return c.Server.Validate()
}

// Load reads the configuration. A non-empty path names the config file
// and must be readable; with an empty path, config.json is looked up in
// the working directory and ./config, and running without any file is
// fine. Environment variables prefixed AUTOSEARCH_ override both, e.g.
// AUTOSEARCH_SEARCH_MAX_RESULTS=3.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AUTOSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_time", true)

	v.SetDefault("search.enabled", true)
	v.SetDefault("search.engines", []string{
		string(web_search.EngineDuckDuckGo),
		string(web_search.EngineDuckDuckGoLite),
	})
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.requests_per_minute", 10)
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.max_retries", 3)
	v.SetDefault("search.output_format", "verbose")
	v.SetDefault("search.max_context_length", 4000)

	v.SetDefault("scrape.fetcher", string(web_scrape.HTTPFetcherType))
	v.SetDefault("scrape.timeout", web_scrape.DefaultTimeout)
	v.SetDefault("scrape.max_retries", web_scrape.DefaultMaxRetries)
	v.SetDefault("scrape.max_concurrent", web_scrape.DefaultMaxConcurrent)
	v.SetDefault("scrape.max_chars", web_scrape.MaxCharsDefault)
	v.SetDefault("scrape.user_agent", web_scrape.DefaultUserAgent)

	ragDef := rag.DefaultConfig()
	v.SetDefault("rag.chunk_size", ragDef.ChunkSize)
	v.SetDefault("rag.chunk_overlap", ragDef.ChunkOverlap)
	v.SetDefault("rag.max_chunks", ragDef.MaxChunks)
	v.SetDefault("rag.relevance_threshold", ragDef.RelevanceThreshold)
	v.SetDefault("rag.recency_weight", ragDef.RecencyWeight)
	v.SetDefault("rag.quality_weight", ragDef.QualityWeight)
	v.SetDefault("rag.trusted_domains", ragDef.TrustedDomains)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.max_bytes", int64(100<<20))
	v.SetDefault("cache.sweep_interval", 5*time.Minute)
	v.SetDefault("cache.sweep_cron", "")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "autosearch:")

	v.SetDefault("server.listen", "127.0.0.1:8090")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("telemetry.enabled", true)
}
