// Package api exposes the alerting engine over HTTP for operators and the
// live dashboard: lifecycle operations, rule management, statistics and a
// websocket stream of lifecycle events.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/audit"
	"github.com/driveloop/driveloop/internal/logger"
)

// Controller registers and serves the alerting API.
type Controller struct {
	manager *alerting.Manager
	audit   *audit.Recorder
	log     logger.Logger

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

// NewController wires routes onto e under /api/v1. audit may be nil, which
// disables the security-events endpoint.
func NewController(e *echo.Echo, manager *alerting.Manager, auditRec *audit.Recorder, log logger.Logger) *Controller {
	c := &Controller{
		manager: manager,
		audit:   auditRec,
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
	manager.Subscribe(c.broadcast)

	g := e.Group("/api/v1")
	g.GET("/alerts", c.ListActiveAlerts)
	g.GET("/alerts/stats", c.GetStatistics)
	g.GET("/alerts/stream", c.StreamEvents)
	g.GET("/alerts/:id", c.GetAlert)
	g.POST("/alerts", c.CreateAlert)
	g.POST("/alerts/:id/acknowledge", c.AcknowledgeAlert)
	g.POST("/alerts/:id/resolve", c.ResolveAlert)
	g.POST("/alerts/:id/status", c.SetAlertStatus)

	g.GET("/rules", c.ListRules)
	g.POST("/rules", c.CreateRule)
	g.PATCH("/rules/:id/toggle", c.ToggleRule)
	g.DELETE("/rules/:id", c.DeleteRule)

	if auditRec != nil {
		g.GET("/security-events", c.ListSecurityEvents)
	}
	return c
}

// ruleView is the JSON representation of a rule; the condition itself is
// code and is summarized rather than serialized.
type ruleView struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Type     alerting.AlertType `json:"type"`
	Severity alerting.Severity  `json:"severity"`
	Channels []alerting.Channel `json:"channels"`
	Cooldown string             `json:"cooldown"`
	Enabled  bool               `json:"enabled"`
	Levels   int                `json:"escalation_levels"`
}

func toRuleView(r *alerting.Rule) ruleView {
	v := ruleView{
		ID:       r.ID,
		Name:     r.Name,
		Type:     r.Type,
		Severity: r.Severity,
		Channels: r.Channels,
		Cooldown: r.Cooldown.String(),
		Enabled:  r.Enabled,
	}
	if r.Escalation != nil {
		v.Levels = len(r.Escalation.Levels)
	}
	return v
}

// ListRules returns all registered rules.
func (c *Controller) ListRules(ctx echo.Context) error {
	rules := c.manager.Rules()
	views := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, toRuleView(r))
	}
	return ctx.JSON(http.StatusOK, map[string]any{"rules": views, "count": len(views)})
}

// createRuleRequest describes a threshold rule created over the API.
type createRuleRequest struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Type      alerting.AlertType `json:"type"`
	Metric    string             `json:"metric"`
	Operator  string             `json:"operator"`
	Threshold float64            `json:"threshold"`
	Severity  alerting.Severity  `json:"severity"`
	Channels  []alerting.Channel `json:"channels"`
	Cooldown  string             `json:"cooldown"`
	Enabled   *bool              `json:"enabled"`
}

// CreateRule registers a threshold rule. Rules with code conditions are
// registered at startup; the API only supports metric/operator/threshold.
func (c *Controller) CreateRule(ctx echo.Context) error {
	var req createRuleRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ID == "" || req.Name == "" || req.Metric == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "id, name and metric are required"})
	}
	cond, err := alerting.ThresholdCondition(req.Metric, req.Operator, req.Threshold)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	cooldown := 5 * time.Minute
	if req.Cooldown != "" {
		if cooldown, err = time.ParseDuration(req.Cooldown); err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid cooldown duration"})
		}
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	rule := &alerting.Rule{
		ID:        req.ID,
		Name:      req.Name,
		Type:      req.Type,
		Condition: cond,
		Severity:  req.Severity,
		Channels:  req.Channels,
		Cooldown:  cooldown,
		Enabled:   enabled,
	}
	// Rendered before AddRule: once registered the rule is shared and may
	// be toggled concurrently.
	view := toRuleView(rule)
	if err := c.manager.AddRule(rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusCreated, view)
}

// ToggleRule enables or disables a rule.
func (c *Controller) ToggleRule(ctx echo.Context) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	c.manager.ToggleRule(ctx.Param("id"), req.Enabled)
	return ctx.NoContent(http.StatusNoContent)
}

// DeleteRule removes a rule. Deleting an unknown rule is a no-op.
func (c *Controller) DeleteRule(ctx echo.Context) error {
	c.manager.RemoveRule(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

// ListSecurityEvents returns recent audit events, newest first.
func (c *Controller) ListSecurityEvents(ctx echo.Context) error {
	events, err := c.audit.Recent(ctx.Request().Context(), 50)
	if err != nil {
		c.log.Error("failed to list security events", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list security events"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
