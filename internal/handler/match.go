package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/service"
)

// MatchHandler handles match and match-stats endpoints.
type MatchHandler struct {
	matches *service.MatchService
	stats   *service.StatsService
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matches *service.MatchService, stats *service.StatsService) *MatchHandler {
	return &MatchHandler{matches: matches, stats: stats}
}

// List returns matches, optionally filtered by status.
func (h *MatchHandler) List(c echo.Context) error {
	var status *domain.MatchStatus
	if raw := c.QueryParam("status"); raw != "" {
		s := domain.MatchStatus(raw)
		if !s.Valid() {
			return &domain.ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("unknown match status %q", raw),
			}
		}
		status = &s
	}

	matches, err := h.matches.List(c.Request().Context(), status, intQueryParam(c, "limit", 50))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, matches)
}

// Get returns a single match.
func (h *MatchHandler) Get(c echo.Context) error {
	match, err := h.matches.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, match)
}

// Create adds a new scheduled fixture.
func (h *MatchHandler) Create(c echo.Context) error {
	var input service.CreateMatchInput
	if err := c.Bind(&input); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	match, err := h.matches.Create(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, match)
}

// UpdateStatus moves a match through its lifecycle.
func (h *MatchHandler) UpdateStatus(c echo.Context) error {
	var body struct {
		Status domain.MatchStatus `json:"status" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if !body.Status.Valid() {
		return &domain.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("unknown match status %q", body.Status),
		}
	}

	match, err := h.matches.UpdateStatus(c.Request().Context(), c.Param("id"), body.Status)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, match)
}

// Stats returns the materialized statistics for a match.
func (h *MatchHandler) Stats(c echo.Context) error {
	stats, err := h.stats.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, stats)
}

// RecomputeStats rebuilds a match's statistics from its full event log.
func (h *MatchHandler) RecomputeStats(c echo.Context) error {
	stats, err := h.stats.Recompute(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, stats)
}
