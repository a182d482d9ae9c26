package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/OpenChatGit/autosearch/internal/autosearch"
	"github.com/OpenChatGit/autosearch/internal/rag"
	"github.com/OpenChatGit/autosearch/models"
)

// AdminHandler serves the runtime configuration and the session-scoped
// source registry.
type AdminHandler struct {
	Manager *autosearch.Manager
}

// Register mounts the handler under the given group.
func (h *AdminHandler) Register(g *echo.Group) {
	g.GET("/sources", h.sources)
	g.POST("/session/clear", h.clearSession)
	g.GET("/config", h.getConfig)
	g.PUT("/config", h.putConfig)
}

type sourcesResponse struct {
	Sources []models.SourceMetadata `json:"sources"`
	Count   int                     `json:"count"`
}

// sources lists every cited source of the current session
// @Summary List session sources
// @Tags admin
// @Produce json
// @Success 200 {object} sourcesResponse
// @Router /api/sources [get]
func (h *AdminHandler) sources(c echo.Context) error {
	list := h.Manager.Orchestrator().Registry().List()
	return c.JSON(http.StatusOK, sourcesResponse{Sources: list, Count: len(list)})
}

// clearSession resets the citation numbering for a fresh conversation
// @Summary Clear session state
// @Tags admin
// @Success 204
// @Router /api/session/clear [post]
func (h *AdminHandler) clearSession(c echo.Context) error {
	h.Manager.Orchestrator().Registry().Clear()
	return c.NoContent(http.StatusNoContent)
}

type searchConfigView struct {
	Enabled          bool   `json:"enabled"`
	MaxResults       int    `json:"max_results"`
	Timeout          string `json:"timeout"`
	OutputFormat     string `json:"output_format"`
	MaxContextLength int    `json:"max_context_length"`
}

type configResponse struct {
	Search searchConfigView `json:"search"`
	RAG    rag.Config       `json:"rag"`
}

func (h *AdminHandler) configResponse() configResponse {
	cfg := h.Manager.Config()
	return configResponse{
		Search: searchConfigView{
			Enabled:          cfg.Enabled,
			MaxResults:       cfg.MaxResults,
			Timeout:          cfg.Timeout.String(),
			OutputFormat:     string(cfg.OutputFormat),
			MaxContextLength: cfg.MaxContextLength,
		},
		RAG: h.Manager.Orchestrator().RAGConfig(),
	}
}

// getConfig reports the active runtime configuration
// @Summary Get runtime configuration
// @Tags admin
// @Produce json
// @Success 200 {object} configResponse
// @Router /api/config [get]
func (h *AdminHandler) getConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.configResponse())
}

type searchConfigUpdate struct {
	Enabled          *bool   `json:"enabled"`
	MaxResults       *int    `json:"max_results"`
	Timeout          *string `json:"timeout"`
	OutputFormat     *string `json:"output_format"`
	MaxContextLength *int    `json:"max_context_length"`
}

type ragConfigUpdate struct {
	ChunkSize          *int     `json:"chunk_size"`
	ChunkOverlap       *int     `json:"chunk_overlap"`
	MaxChunks          *int     `json:"max_chunks"`
	RelevanceThreshold *float64 `json:"relevance_threshold"`
	RecencyWeight      *float64 `json:"recency_weight"`
	QualityWeight      *float64 `json:"quality_weight"`
	TrustedDomains     []string `json:"trusted_domains"`
}

type cacheConfigUpdate struct {
	TTL *string `json:"ttl"`
}

type configUpdateRequest struct {
	Search *searchConfigUpdate `json:"search"`
	RAG    *ragConfigUpdate    `json:"rag"`
	Cache  *cacheConfigUpdate  `json:"cache"`
}

// putConfig applies a partial runtime reconfiguration. Each section is
// validated as a whole; sections are applied in order and the first
// invalid one stops the update.
// @Summary Update runtime configuration
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} configResponse
// @Failure 400 {object} map[string]string
// @Router /api/config [put]
func (h *AdminHandler) putConfig(c echo.Context) error {
	var req configUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.Search != nil {
		update := autosearch.ConfigUpdate{
			Enabled:          req.Search.Enabled,
			MaxResults:       req.Search.MaxResults,
			OutputFormat:     req.Search.OutputFormat,
			MaxContextLength: req.Search.MaxContextLength,
		}
		if req.Search.Timeout != nil {
			d, err := time.ParseDuration(*req.Search.Timeout)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("search.timeout: %v", err))
			}
			update.Timeout = &d
		}
		if err := h.Manager.Configure(update); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	if req.RAG != nil {
		cfg := h.Manager.Orchestrator().RAGConfig()
		if req.RAG.ChunkSize != nil {
			cfg.ChunkSize = *req.RAG.ChunkSize
		}
		if req.RAG.ChunkOverlap != nil {
			cfg.ChunkOverlap = *req.RAG.ChunkOverlap
		}
		if req.RAG.MaxChunks != nil {
			cfg.MaxChunks = *req.RAG.MaxChunks
		}
		if req.RAG.RelevanceThreshold != nil {
			cfg.RelevanceThreshold = *req.RAG.RelevanceThreshold
		}
		if req.RAG.RecencyWeight != nil {
			cfg.RecencyWeight = *req.RAG.RecencyWeight
		}
		if req.RAG.QualityWeight != nil {
			cfg.QualityWeight = *req.RAG.QualityWeight
		}
		if req.RAG.TrustedDomains != nil {
			cfg.TrustedDomains = req.RAG.TrustedDomains
		}
		if err := h.Manager.Orchestrator().ConfigureRAG(cfg); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	if req.Cache != nil && req.Cache.TTL != nil {
		d, err := time.ParseDuration(*req.Cache.TTL)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "cache.ttl must be a positive duration")
		}
		h.Manager.Orchestrator().SetCacheTTL(d)
	}

	return c.JSON(http.StatusOK, h.configResponse())
}
