// Package server exposes the search pipeline over HTTP: the chat
// integration endpoints, a live progress stream and the operational
// surface a deployment needs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OpenChatGit/autosearch/config"
	"github.com/OpenChatGit/autosearch/internal/autosearch"
	"github.com/OpenChatGit/autosearch/internal/formatter"
	"github.com/OpenChatGit/autosearch/internal/rag"
	"github.com/OpenChatGit/autosearch/internal/search"
	"github.com/OpenChatGit/autosearch/internal/telemetry"
	"github.com/OpenChatGit/autosearch/tools/web_scrape"
	"github.com/OpenChatGit/autosearch/tools/web_search"
)

// Build assembles the pipeline from the configuration: engine
// executors, scraper, relevance processing, the cache backend and the
// manager on top. ctx bounds backend connection attempts.
func Build(ctx context.Context, cfg *config.Config) (*autosearch.Manager, error) {
	flags := log.LstdFlags
	if !cfg.General.LogTime {
		flags = 0
	}
	newLogger := func(prefix string) *log.Logger { return log.New(log.Writer(), prefix, flags) }

	searcher, err := web_search.New(web_search.Config{
		Engines:           cfg.Search.Engines,
		RequestsPerMinute: cfg.Search.RequestsPerMinute,
	}, web_search.NewHTTPPageFetcher(cfg.Search.Timeout), newLogger("[SEARCH] "))
	if err != nil {
		return nil, err
	}

	scraper, err := web_scrape.New(web_scrape.FetcherType(cfg.Scrape.Fetcher), web_scrape.Options{
		Timeout:       cfg.Scrape.Timeout,
		MaxRetries:    cfg.Scrape.MaxRetries,
		MaxConcurrent: cfg.Scrape.MaxConcurrent,
		MaxChars:      cfg.Scrape.MaxChars,
		UserAgent:     cfg.Scrape.UserAgent,
	}, newLogger("[SCRAPE] "))
	if err != nil {
		return nil, err
	}

	proc, err := rag.NewProcessor(cfg.RAG, newLogger("[RAG] "))
	if err != nil {
		return nil, err
	}

	format, err := formatter.ParseFormat(cfg.Search.OutputFormat)
	if err != nil {
		return nil, err
	}

	stats := &search.Stats{}
	cache, err := buildCache(ctx, cfg, stats, newLogger("[CACHE] "))
	if err != nil {
		return nil, err
	}

	orch, err := search.NewOrchestrator(search.Deps{
		Searcher: searcher,
		Acquirer: search.NewAcquirer(scraper, cfg.Scrape.Timeout, newLogger("[ACQUIRE] ")),
		RAG:      proc,
		Cache:    cache,
		Stats:    stats,
		Logger:   newLogger("[ORCH] "),
	}, search.Options{
		MaxResults:    cfg.Search.MaxResults,
		MaxRetries:    cfg.Search.MaxRetries,
		SearchTimeout: cfg.Search.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return autosearch.New(orch, autosearch.Config{
		Enabled:          cfg.Search.Enabled,
		MaxResults:       cfg.Search.MaxResults,
		Timeout:          cfg.Search.Timeout,
		OutputFormat:     format,
		MaxContextLength: cfg.Search.MaxContextLength,
	}, newLogger("[AUTOSEARCH] ")), nil
}

func buildCache(ctx context.Context, cfg *config.Config, stats *search.Stats, logger *log.Logger) (search.Cache, error) {
	if !cfg.Cache.Enabled {
		return search.NopCache{}, nil
	}
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		return search.NewRedisCache(ctx, search.RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Cache.TTL,
		}, logger)
	default:
		return search.NewMemoryCache(search.CacheOptions{
			TTL:           cfg.Cache.TTL,
			MaxEntries:    cfg.Cache.MaxEntries,
			MaxBytes:      cfg.Cache.MaxBytes,
			SweepInterval: cfg.Cache.SweepInterval,
			SweepCron:     cfg.Cache.SweepCron,
		}, stats, logger), nil
	}
}

// New builds the HTTP API around a manager.
func New(m *autosearch.Manager, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	flags := log.LstdFlags
	if !cfg.General.LogTime {
		flags = 0
	}
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", flags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	registerDocs(e)
	if cfg.Telemetry.Enabled {
		telemetry.Register()
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/api")

	sh := &SearchHandler{Manager: m}
	sh.Register(api.Group("/search"))

	ah := &AdminHandler{Manager: m}
	ah.Register(api)

	evh := &EventsHandler{Manager: m}
	evh.Register(api)

	return e
}

// Run builds the pipeline and serves the API until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	m, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Orchestrator().Close()

	e := New(m, cfg)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(sctx)
	}()

	log.Printf("listening on %s", cfg.Server.Listen)
	if err := e.Start(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
