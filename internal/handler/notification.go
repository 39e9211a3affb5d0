package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/repository"
	"github.com/brixsport/backend/internal/service"
)

// NotificationHandler handles the notification inbox endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
	deliveries    *service.DeliveryService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService, deliveries *service.DeliveryService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, deliveries: deliveries}
}

// List returns one page of the caller's notifications, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	filter := repository.ListFilter{
		Page:  intQueryParam(c, "page", 1),
		Limit: intQueryParam(c, "limit", 20),
	}
	if raw := c.QueryParam("status"); raw != "" {
		s := domain.NotificationStatus(raw)
		if !s.Valid() {
			return &domain.ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("unknown status %q", raw),
			}
		}
		filter.Status = &s
	}
	if raw := c.QueryParam("type"); raw != "" {
		t := domain.NotificationType(raw)
		if !t.Valid() {
			return &domain.ValidationError{
				Field:   "type",
				Message: fmt.Sprintf("unknown notification type %q", raw),
			}
		}
		filter.Type = &t
	}
	if raw := c.QueryParam("priority"); raw != "" {
		p := domain.Priority(raw)
		if !p.Valid() {
			return &domain.ValidationError{
				Field:   "priority",
				Message: fmt.Sprintf("unknown priority %q", raw),
			}
		}
		filter.Priority = &p
	}

	page, err := h.notifications.List(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}
	return JSONList(c, http.StatusOK, page.Items, PaginationMeta{
		Page:  page.Page,
		Limit: page.Limit,
		Total: page.Total,
	})
}

// BatchUpdateStatus moves a batch of the caller's notifications to a
// new status and reports how many changed.
func (h *NotificationHandler) BatchUpdateStatus(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var body struct {
		IDs    []string                  `json:"ids" validate:"required,min=1,max=100"`
		Status domain.NotificationStatus `json:"status" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	updated, err := h.notifications.BatchUpdateStatus(c.Request().Context(), userID, body.IDs, body.Status)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]int{"updated": updated})
}

// Announce queues an administrative broadcast to all active users.
func (h *NotificationHandler) Announce(c echo.Context) error {
	var body struct {
		Title    string                  `json:"title" validate:"required,max=200"`
		Message  string                  `json:"message" validate:"required,max=2000"`
		Type     domain.NotificationType `json:"type" validate:"required"`
		Priority domain.Priority         `json:"priority" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	err := h.notifications.Announce(c.Request().Context(), service.Announcement{
		Title:    body.Title,
		Message:  body.Message,
		Type:     body.Type,
		Priority: body.Priority,
	})
	if err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Deliveries returns the delivery attempt history for one
// notification.
func (h *NotificationHandler) Deliveries(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.notifications.Find(c.Request().Context(), id); err != nil {
		return err
	}

	records, err := h.deliveries.History(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, records)
}
