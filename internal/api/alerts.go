package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/logger"
)

// ListActiveAlerts returns every alert not in a terminal status.
func (c *Controller) ListActiveAlerts(ctx echo.Context) error {
	alerts := c.manager.ActiveAlerts()
	return ctx.JSON(http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// GetAlert returns a single alert by id.
func (c *Controller) GetAlert(ctx echo.Context) error {
	alert, err := c.manager.GetAlert(ctx.Param("id"))
	if err != nil {
		return c.alertError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, alert)
}

// GetStatistics returns aggregate alert counts.
func (c *Controller) GetStatistics(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.manager.GetStatistics())
}

// createAlertRequest is an ad hoc alert submission.
type createAlertRequest struct {
	Type     alerting.AlertType `json:"type"`
	Severity alerting.Severity  `json:"severity"`
	Title    string             `json:"title"`
	Message  string             `json:"message"`
	Details  map[string]any     `json:"details"`
}

// CreateAlert creates an alert bypassing the rule engine.
func (c *Controller) CreateAlert(ctx echo.Context) error {
	var req createAlertRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Title == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}
	if req.Severity == "" {
		req.Severity = alerting.SeverityMedium
	}
	id := c.manager.CreateAlert(ctx.Request().Context(), req.Type, req.Severity, req.Title, req.Message, req.Details)
	return ctx.JSON(http.StatusCreated, map[string]string{"id": id})
}

type actorRequest struct {
	Actor string `json:"actor"`
	Note  string `json:"note"`
}

// AcknowledgeAlert assigns the alert to the acting operator.
func (c *Controller) AcknowledgeAlert(ctx echo.Context) error {
	var req actorRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	alert, err := c.manager.AcknowledgeAlert(ctx.Param("id"), req.Actor)
	if err != nil {
		return c.alertError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, alert)
}

// ResolveAlert terminates the alert and cancels pending escalations.
func (c *Controller) ResolveAlert(ctx echo.Context) error {
	var req actorRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	alert, err := c.manager.ResolveAlert(ctx.Param("id"), req.Actor, req.Note)
	if err != nil {
		return c.alertError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, alert)
}

// SetAlertStatus performs an explicit transition such as investigating or
// false_positive.
func (c *Controller) SetAlertStatus(ctx echo.Context) error {
	var req struct {
		Status alerting.Status `json:"status"`
		Actor  string          `json:"actor"`
	}
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	alert, err := c.manager.SetAlertStatus(ctx.Param("id"), req.Status, req.Actor)
	if err != nil {
		return c.alertError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, alert)
}

// alertError maps lifecycle errors onto HTTP status codes.
func (c *Controller) alertError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, alerting.ErrAlertNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "alert not found"})
	case errors.Is(err, alerting.ErrInvalidTransition):
		return ctx.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		c.log.Error("alert operation failed", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
