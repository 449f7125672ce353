package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/papers/pkg/ingest"
	"github.com/papercomputeco/papers/pkg/retrieval"
	"github.com/papercomputeco/papers/pkg/schedule"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SearchResponse is returned by both search endpoints.
type SearchResponse struct {
	Query   string             `json:"query"`
	Results []retrieval.Result `json:"results"`
	Count   int                `json:"count"`
}

// IngestRequest is the body of POST /v1/ingest. An empty body uses the
// configured default target.
type IngestRequest struct {
	TargetCount *int `json:"target_count,omitempty"`
}

// IngestResponse reports a completed batch.
type IngestResponse struct {
	*ingest.Summary
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleSearchQuery handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 3): number of results to return
func (s *Server) handleSearchQuery(c *fiber.Ctx) error {
	k := 0
	if topK := c.Query("top_k"); topK != "" {
		parsed, err := strconv.Atoi(topK)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		k = parsed
	}

	return s.search(c, c.Query("query"), k)
}

// handleSearchBody handles POST /v1/search requests.
func (s *Server) handleSearchBody(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}
	if req.K < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "k must not be negative",
		})
	}

	return s.search(c, req.Query, req.K)
}

func (s *Server) search(c *fiber.Ctx, query string, k int) error {
	if s.config.Searcher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "search is not configured",
		})
	}

	if strings.TrimSpace(query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	results := s.config.Searcher.Search(c.UserContext(), query, k)
	if results == nil {
		results = []retrieval.Result{}
	}

	return c.JSON(SearchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	})
}

// handleIngest runs one ingestion batch synchronously.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	if s.config.Ingester == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "ingestion is not configured: a corpus source is required",
		})
	}

	var req IngestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "invalid request body",
			})
		}
	}

	target := s.config.DefaultTargetCount
	if req.TargetCount != nil {
		target = *req.TargetCount
	}

	summary, err := s.config.Ingester.RunNow(c.UserContext(), target)
	switch {
	case errors.Is(err, ingest.ErrInvalidTarget):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, schedule.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, schedule.ErrClosed):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
	case err != nil && summary == nil:
		s.logger.Error("ingestion failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	case err != nil:
		// A partial batch still moved the checkpoint.
		s.logger.Error("ingestion interrupted", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(IngestResponse{
			Summary: summary,
			Message: summary.Message(),
			Error:   err.Error(),
		})
	}

	return c.JSON(IngestResponse{
		Summary: summary,
		Message: summary.Message(),
	})
}

// handleCheckpoint reports the stored checkpoint and record count.
func (s *Server) handleCheckpoint(c *fiber.Ctx) error {
	if s.config.Progress == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "ingestion is not configured: a corpus source is required",
		})
	}

	status, err := s.config.Progress.Status(c.UserContext())
	if err != nil {
		s.logger.Error("failed to read ingestion status", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to read ingestion status",
		})
	}

	return c.JSON(status)
}
