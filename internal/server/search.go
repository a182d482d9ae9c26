package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/OpenChatGit/autosearch/internal/autosearch"
	"github.com/OpenChatGit/autosearch/internal/search"
	"github.com/OpenChatGit/autosearch/models"
)

// SearchHandler serves the chat integration surface: the search
// decision, query optimization, the pipeline itself and context
// injection.
type SearchHandler struct {
	Manager *autosearch.Manager
}

// Register mounts the handler under the given group.
func (h *SearchHandler) Register(g *echo.Group) {
	g.POST("", h.perform)
	g.POST("/should", h.should)
	g.POST("/query", h.query)
	g.POST("/inject", h.inject)
	g.GET("/stats", h.stats)
	g.DELETE("/cache", h.clearCache)
}

type performRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Force      bool   `json:"force"`
}

// perform runs the full pipeline for one query
// @Summary Run a web search
// @Tags search
// @Accept json
// @Produce json
// @Success 200 {object} models.SearchContext
// @Failure 400 {object} map[string]string
// @Router /api/search [post]
func (h *SearchHandler) perform(c echo.Context) error {
	var req performRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	sc := h.Manager.PerformSearch(c.Request().Context(), req.Query, &autosearch.SearchOptions{
		MaxResults: req.MaxResults,
		Force:      req.Force,
	})
	return c.JSON(http.StatusOK, sc)
}

type shouldRequest struct {
	Query   string            `json:"query"`
	History []autosearch.Turn `json:"history"`
}

type shouldResponse struct {
	ShouldSearch bool `json:"should_search"`
}

// should applies the search decision to a message and its history
// @Summary Decide whether a message needs a web search
// @Tags search
// @Accept json
// @Produce json
// @Success 200 {object} shouldResponse
// @Router /api/search/should [post]
func (h *SearchHandler) should(c echo.Context) error {
	var req shouldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, shouldResponse{
		ShouldSearch: h.Manager.ShouldSearch(req.Query, req.History),
	})
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Query     string `json:"query"`
	Optimized string `json:"optimized"`
}

// query distills a conversational message into search terms
// @Summary Optimize a message into a search query
// @Tags search
// @Accept json
// @Produce json
// @Success 200 {object} queryResponse
// @Failure 400 {object} map[string]string
// @Router /api/search/query [post]
func (h *SearchHandler) query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	return c.JSON(http.StatusOK, queryResponse{
		Query:     req.Query,
		Optimized: h.Manager.ExtractSearchQuery(req.Query),
	})
}

type injectRequest struct {
	Message string               `json:"message"`
	Context models.SearchContext `json:"context"`
}

type injectResponse struct {
	Message string `json:"message"`
}

// inject folds a search context into a chat message
// @Summary Build the enriched prompt for a message
// @Tags search
// @Accept json
// @Produce json
// @Success 200 {object} injectResponse
// @Failure 400 {object} map[string]string
// @Router /api/search/inject [post]
func (h *SearchHandler) inject(c echo.Context) error {
	var req injectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	return c.JSON(http.StatusOK, injectResponse{
		Message: h.Manager.InjectContext(req.Message, req.Context),
	})
}

type statsResponse struct {
	search.Snapshot
	Sources int `json:"sources"`
}

// stats reports the pipeline counters
// @Summary Pipeline statistics
// @Tags search
// @Produce json
// @Success 200 {object} statsResponse
// @Router /api/search/stats [get]
func (h *SearchHandler) stats(c echo.Context) error {
	orch := h.Manager.Orchestrator()
	return c.JSON(http.StatusOK, statsResponse{
		Snapshot: orch.StatsSnapshot(),
		Sources:  orch.Registry().Len(),
	})
}

// clearCache drops every cached search context
// @Summary Clear the context cache
// @Tags search
// @Success 204
// @Router /api/search/cache [delete]
func (h *SearchHandler) clearCache(c echo.Context) error {
	if err := h.Manager.Orchestrator().ClearCache(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
