package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/service"
)

// EventHandler handles the match event log endpoints.
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// List returns a match's ordered event log.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.events.ListByMatch(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, events)
}

// Record appends one event to a match's log.
func (h *EventHandler) Record(c echo.Context) error {
	var input service.RecordEventInput
	if err := c.Bind(&input); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	input.MatchID = c.Param("id")
	if key := c.Request().Header.Get("Idempotency-Key"); key != "" && input.IdempotencyKey == nil {
		input.IdempotencyKey = &key
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	event, err := h.events.Record(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, event)
}

// ListQuarantined returns a match's quarantined events for review.
func (h *EventHandler) ListQuarantined(c echo.Context) error {
	events, err := h.events.ListQuarantined(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, events)
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
