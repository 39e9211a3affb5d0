package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/service"
)

// PreferencesHandler handles notification preference endpoints.
type PreferencesHandler struct {
	prefs *service.PreferencesService
}

// NewPreferencesHandler creates a new PreferencesHandler.
func NewPreferencesHandler(prefs *service.PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

// Get returns the caller's preferences, creating defaults on first
// access.
func (h *PreferencesHandler) Get(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	prefs, err := h.prefs.Get(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, prefs)
}

// Update merges a partial preference document into the caller's
// preferences.
func (h *PreferencesHandler) Update(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var update service.PreferencesUpdate
	if err := c.Bind(&update); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}

	prefs, err := h.prefs.Update(c.Request().Context(), userID, update)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, prefs)
}
