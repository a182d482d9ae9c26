package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.General.LogTime {
		t.Error("General.LogTime = false, want true")
	}
	if !cfg.Search.Enabled {
		t.Error("Search.Enabled = false, want true")
	}
	wantEngines := []string{"duckduckgo", "duckduckgo_lite"}
	if !reflect.DeepEqual(cfg.Search.Engines, wantEngines) {
		t.Errorf("Search.Engines = %v, want %v", cfg.Search.Engines, wantEngines)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("Search.MaxResults = %d, want 5", cfg.Search.MaxResults)
	}
	if cfg.Search.RequestsPerMinute != 10 {
		t.Errorf("Search.RequestsPerMinute = %d, want 10", cfg.Search.RequestsPerMinute)
	}
	if cfg.Search.Timeout != 10*time.Second {
		t.Errorf("Search.Timeout = %v, want 10s", cfg.Search.Timeout)
	}
	if cfg.Search.OutputFormat != "verbose" {
		t.Errorf("Search.OutputFormat = %q, want verbose", cfg.Search.OutputFormat)
	}
	if cfg.Search.MaxContextLength != 4000 {
		t.Errorf("Search.MaxContextLength = %d, want 4000", cfg.Search.MaxContextLength)
	}
	if cfg.Scrape.Fetcher != "http" {
		t.Errorf("Scrape.Fetcher = %q, want http", cfg.Scrape.Fetcher)
	}
	if cfg.Scrape.Timeout != 15*time.Second {
		t.Errorf("Scrape.Timeout = %v, want 15s", cfg.Scrape.Timeout)
	}
	if !strings.Contains(cfg.Scrape.UserAgent, "Firefox") {
		t.Errorf("Scrape.UserAgent = %q, want a Firefox UA", cfg.Scrape.UserAgent)
	}
	if cfg.RAG.ChunkSize != 500 {
		t.Errorf("RAG.ChunkSize = %d, want 500", cfg.RAG.ChunkSize)
	}
	if cfg.RAG.RelevanceThreshold != 0.3 {
		t.Errorf("RAG.RelevanceThreshold = %g, want 0.3", cfg.RAG.RelevanceThreshold)
	}
	if len(cfg.RAG.TrustedDomains) == 0 {
		t.Error("RAG.TrustedDomains is empty")
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled = false, want true")
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxBytes != 100<<20 {
		t.Errorf("Cache.MaxBytes = %d, want %d", cfg.Cache.MaxBytes, 100<<20)
	}
	if cfg.Cache.SweepInterval != 5*time.Minute {
		t.Errorf("Cache.SweepInterval = %v, want 5m", cfg.Cache.SweepInterval)
	}
	if cfg.Redis.KeyPrefix != "autosearch:" {
		t.Errorf("Redis.KeyPrefix = %q, want autosearch:", cfg.Redis.KeyPrefix)
	}
	if cfg.Server.Listen != "127.0.0.1:8090" {
		t.Errorf("Server.Listen = %q, want 127.0.0.1:8090", cfg.Server.Listen)
	}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, []string{"*"}) {
		t.Errorf("Server.CORSOrigins = %v, want [*]", cfg.Server.CORSOrigins)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = false, want true")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"search": {"max_results": 3, "timeout": "30s", "engines": ["duckduckgo"]},
		"cache": {"backend": "redis", "ttl": "10m"},
		"redis": {"addr": "cache.internal:6379"},
		"server": {"listen": "0.0.0.0:9000"}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) error: %v", path, err)
	}
	if cfg.Search.MaxResults != 3 {
		t.Errorf("Search.MaxResults = %d, want 3", cfg.Search.MaxResults)
	}
	if cfg.Search.Timeout != 30*time.Second {
		t.Errorf("Search.Timeout = %v, want 30s", cfg.Search.Timeout)
	}
	if !reflect.DeepEqual(cfg.Search.Engines, []string{"duckduckgo"}) {
		t.Errorf("Search.Engines = %v, want [duckduckgo]", cfg.Search.Engines)
	}
	if cfg.Cache.Backend != CacheBackendRedis {
		t.Errorf("Cache.Backend = %q, want redis", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Cache.TTL = %v, want 10m", cfg.Cache.TTL)
	}
	if cfg.Redis.Addr != "cache.internal:6379" {
		t.Errorf("Redis.Addr = %q, want cache.internal:6379", cfg.Redis.Addr)
	}
	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("Server.Listen = %q, want 0.0.0.0:9000", cfg.Server.Listen)
	}
	// Sections the file does not touch keep their defaults.
	if cfg.Scrape.MaxConcurrent != 5 {
		t.Errorf("Scrape.MaxConcurrent = %d, want 5", cfg.Scrape.MaxConcurrent)
	}
	if cfg.Search.MaxContextLength != 4000 {
		t.Errorf("Search.MaxContextLength = %d, want 4000", cfg.Search.MaxContextLength)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Load() with a missing explicit file returned nil error")
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"search": {"max_results": 0}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted max_results 0")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AUTOSEARCH_SEARCH_MAX_RESULTS", "2")
	t.Setenv("AUTOSEARCH_SERVER_LISTEN", "127.0.0.1:7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Search.MaxResults != 2 {
		t.Errorf("Search.MaxResults = %d, want 2 from environment", cfg.Search.MaxResults)
	}
	if cfg.Server.Listen != "127.0.0.1:7070" {
		t.Errorf("Server.Listen = %q, want 127.0.0.1:7070 from environment", cfg.Server.Listen)
	}
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Helper()
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Search.Engines = []string{"altavista"} },
			wantErr: "unknown search engine",
		},
		{
			name:    "no engines",
			mutate:  func(c *Config) { c.Search.Engines = nil },
			wantErr: "at least one engine",
		},
		{
			name:    "zero search timeout",
			mutate:  func(c *Config) { c.Search.Timeout = 0 },
			wantErr: "search.timeout",
		},
		{
			name:    "bad output format",
			mutate:  func(c *Config) { c.Search.OutputFormat = "yaml" },
			wantErr: "output_format",
		},
		{
			name:    "context length too small",
			mutate:  func(c *Config) { c.Search.MaxContextLength = 50 },
			wantErr: "max_context_length",
		},
		{
			name:    "unknown fetcher",
			mutate:  func(c *Config) { c.Scrape.Fetcher = "curl" },
			wantErr: "unknown scrape fetcher",
		},
		{
			name:    "chunk size out of range",
			mutate:  func(c *Config) { c.RAG.ChunkSize = 10 },
			wantErr: "chunk_size",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "disk" },
			wantErr: "unknown cache backend",
		},
		{
			name:    "bad sweep cron",
			mutate:  func(c *Config) { c.Cache.SweepCron = "not a cron" },
			wantErr: "sweep_cron",
		},
		{
			name: "redis backend without addr",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendRedis
				c.Redis.Addr = ""
			},
			wantErr: "requires redis.addr",
		},
		{
			name:    "empty listen address",
			mutate:  func(c *Config) { c.Server.Listen = "" },
			wantErr: "server.listen",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
