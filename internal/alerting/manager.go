package alerting

import (
	"context"
	"maps"
	"time"

	"github.com/driveloop/driveloop/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// Delivery is the outcome of one channel attempt during a dispatch.
type Delivery struct {
	Channel Channel       `json:"channel"`
	Err     error         `json:"-"`
	Skipped bool          `json:"skipped"` // channel disabled or unknown
	Elapsed time.Duration `json:"elapsed"`
}

// Dispatcher fans a triggered or escalated alert out to notification
// channels and reports per-channel outcomes. Implementations must contain
// channel failures internally: the call itself never fails, even when every
// channel does.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *Alert, channels []Channel) []Delivery
}

// DirectNotifier performs a user-directed notification for an escalation
// level's explicit recipients.
type DirectNotifier interface {
	NotifyUser(ctx context.Context, recipient string, alert *Alert) error
}

// SecurityEventRecord is the payload handed to the audit collaborator for
// every security-typed alert.
type SecurityEventRecord struct {
	Type      string
	Severity  string
	SourceIP  string
	UserAgent string
	Message   string
	Details   map[string]any
	Action    string
	Blocked   bool
}

// SecurityRecorder is the external audit/security-event sink.
type SecurityRecorder interface {
	RecordSecurityEvent(ctx context.Context, rec SecurityEventRecord) error
}

// ManagerConfig wires the manager's collaborators. Dispatcher, Direct, Audit
// and Registerer may be nil; the corresponding side effects are skipped.
type ManagerConfig struct {
	Dispatcher  Dispatcher
	Direct      DirectNotifier
	Audit       SecurityRecorder
	Log         logger.Logger
	Registerer  prometheus.Registerer
	EventBuffer int
}

// Manager is the alerting facade: it evaluates rules against incoming
// snapshots, materializes alerts, dispatches notifications, arms and disarms
// escalation timers and exposes the lifecycle operations. One instance per
// process, constructed at startup and passed to callers.
type Manager struct {
	registry   *Registry
	cooldowns  *CooldownTracker
	store      *Store
	scheduler  *Scheduler
	bus        *EventBus
	dispatcher Dispatcher
	direct     DirectNotifier
	audit      SecurityRecorder
	metrics    *Metrics
	log        logger.Logger
}

// NewManager builds a manager with an empty rule set. Call SeedDefaultRules
// to install the built-in rules.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		cooldowns:  NewCooldownTracker(),
		store:      NewStore(),
		bus:        NewEventBus(cfg.EventBuffer),
		dispatcher: cfg.Dispatcher,
		direct:     cfg.Direct,
		audit:      cfg.Audit,
		log:        cfg.Log,
	}
	m.registry = NewRegistry(m.cooldowns, cfg.Log)
	m.scheduler = NewScheduler(m.handleEscalation, cfg.Log)
	if cfg.Registerer != nil {
		m.metrics = NewMetrics(cfg.Registerer)
	}
	return m
}

// SeedDefaultRules installs the built-in rule set.
func (m *Manager) SeedDefaultRules() {
	for _, rule := range DefaultRules() {
		if err := m.registry.Add(rule); err != nil {
			m.log.Error("failed to seed default rule",
				logger.String("rule_id", rule.ID),
				logger.Error(err))
		}
	}
	m.log.Info("seeded default alert rules", logger.Int("count", len(DefaultRules())))
}

// CheckRules evaluates every enabled rule against the snapshot and fires an
// alert for each satisfied rule not in cooldown. Safe to call concurrently:
// the cooldown tracker's fire-time test-and-set guarantees a rule never
// double-fires inside its window even when two evaluations race.
func (m *Manager) CheckRules(ctx context.Context, snapshot Snapshot) {
	for _, rule := range m.registry.Evaluate(snapshot) {
		if !m.cooldowns.Begin(rule.ID, rule.Cooldown) {
			continue // lost the race with a concurrent evaluation
		}
		alert := m.store.Create(Draft{
			Type:     rule.Type,
			Severity: rule.Severity,
			Title:    rule.Name,
			Message:  "rule condition satisfied",
			Details:  maps.Clone(map[string]any(snapshot)),
			Source:   rule.ID,
		})
		m.log.Info("alert rule fired",
			logger.String("rule_id", rule.ID),
			logger.String("alert_id", alert.ID),
			logger.String("severity", string(alert.Severity)))
		m.fire(ctx, alert, rule.Channels, rule.Escalation)
	}
	m.autoResolveCleared(snapshot)
}

// autoResolveCleared closes open alerts of auto-resolve rules whose condition
// is no longer satisfied.
func (m *Manager) autoResolveCleared(snapshot Snapshot) {
	cleared := m.registry.ClearedAutoResolve(snapshot)
	if len(cleared) == 0 {
		return
	}
	bySource := make(map[string]bool, len(cleared))
	for _, rule := range cleared {
		bySource[rule.ID] = true
	}
	for _, alert := range m.store.Active() {
		if !bySource[alert.Source] {
			continue
		}
		if _, err := m.ResolveAlert(alert.ID, "system", "condition cleared"); err != nil {
			m.log.Error("auto-resolve failed",
				logger.String("alert_id", alert.ID),
				logger.Error(err))
		}
	}
}

// CreateAlert is the ad hoc path bypassing the rule engine, used by
// collaborators that already know they have something alert-worthy. Channels
// default from the severity. Returns the new alert's id.
func (m *Manager) CreateAlert(ctx context.Context, typ AlertType, severity Severity, title, message string, details map[string]any) string {
	alert := m.store.Create(Draft{
		Type:     typ,
		Severity: severity,
		Title:    title,
		Message:  message,
		Details:  details,
	})
	m.log.Info("alert created",
		logger.String("alert_id", alert.ID),
		logger.String("type", string(typ)),
		logger.String("severity", string(severity)))
	m.fire(ctx, alert, nil, nil)
	return alert.ID
}

// fire runs the shared trigger side effects: metrics, audit recording for
// security alerts, event emission, notification dispatch and escalation
// arming.
func (m *Manager) fire(ctx context.Context, alert *Alert, channels []Channel, policy *EscalationPolicy) {
	m.metrics.alertTriggered(alert.Type, alert.Severity)

	if alert.Type == TypeSecurity {
		m.recordSecurityEvent(ctx, alert)
	}

	m.bus.Publish(Event{Type: EventTriggered, Alert: *alert})

	if m.dispatcher != nil {
		m.dispatcher.Dispatch(ctx, alert, channelsFor(alert.Severity, channels))
	}
	if policy != nil {
		m.scheduler.Arm(alert.ID, alert.TriggeredAt, policy)
	}
}

// handleEscalation is the scheduler callback for a due escalation level.
// A level firing after resolve is skipped by the store; a level racing a
// resolve may produce one redundant notification, which is tolerated.
func (m *Manager) handleEscalation(alertID string, levelIndex int, level EscalationLevel) {
	alert, ok := m.store.Escalate(alertID, level)
	if !ok {
		m.log.Debug("escalation skipped, alert already terminal",
			logger.String("alert_id", alertID),
			logger.Int("level", levelIndex))
		return
	}
	m.metrics.escalationFired()
	m.log.Warn("alert escalated",
		logger.String("alert_id", alertID),
		logger.Int("level", levelIndex),
		logger.String("severity", string(alert.Severity)))

	m.bus.Publish(Event{Type: EventEscalated, Alert: *alert})

	ctx := context.Background()
	if m.dispatcher != nil {
		m.dispatcher.Dispatch(ctx, alert, channelsFor(alert.Severity, level.Channels))
	}
	for _, recipient := range level.Notify {
		if m.direct == nil {
			break
		}
		if err := m.direct.NotifyUser(ctx, recipient, alert); err != nil {
			m.log.Error("direct escalation notification failed",
				logger.String("alert_id", alertID),
				logger.String("recipient", recipient),
				logger.Error(err))
		}
	}
}

func (m *Manager) recordSecurityEvent(ctx context.Context, alert *Alert) {
	if m.audit == nil {
		return
	}
	rec := SecurityEventRecord{
		Type:     "alert." + string(alert.Type),
		Severity: string(alert.Severity),
		Message:  alert.Title + ": " + alert.Message,
		Details:  alert.Details,
		Action:   "alerted",
	}
	if err := m.audit.RecordSecurityEvent(ctx, rec); err != nil {
		m.log.Error("failed to record security event",
			logger.String("alert_id", alert.ID),
			logger.Error(err))
	}
}

// AcknowledgeAlert moves an alert to acknowledged and assigns it to actor.
func (m *Manager) AcknowledgeAlert(id, actor string) (*Alert, error) {
	alert, err := m.store.Acknowledge(id, actor)
	if err != nil {
		return nil, err
	}
	m.bus.Publish(Event{Type: EventAcknowledged, Alert: *alert})
	return alert, nil
}

// ResolveAlert terminates an alert and cancels its pending escalations.
func (m *Manager) ResolveAlert(id, actor, note string) (*Alert, error) {
	alert, err := m.store.Resolve(id, actor, note)
	if err != nil {
		return nil, err
	}
	m.scheduler.Disarm(id)
	m.metrics.alertClosed()
	m.bus.Publish(Event{Type: EventResolved, Alert: *alert})
	m.log.Info("alert resolved",
		logger.String("alert_id", id),
		logger.String("actor", actor))
	return alert, nil
}

// SetAlertStatus performs an explicit operator transition (investigating,
// false_positive). Terminal transitions cancel pending escalations.
func (m *Manager) SetAlertStatus(id string, status Status, actor string) (*Alert, error) {
	alert, err := m.store.SetStatus(id, status, actor)
	if err != nil {
		return nil, err
	}
	if status.Terminal() {
		m.scheduler.Disarm(id)
		m.metrics.alertClosed()
		m.bus.Publish(Event{Type: EventResolved, Alert: *alert})
	}
	return alert, nil
}

// GetAlert returns a single alert by id.
func (m *Manager) GetAlert(id string) (*Alert, error) { return m.store.Get(id) }

// ActiveAlerts returns all alerts not in a terminal status.
func (m *Manager) ActiveAlerts() []*Alert { return m.store.Active() }

// GetStatistics returns aggregate alert counts.
func (m *Manager) GetStatistics() Statistics { return m.store.Statistics() }

// AddRule inserts or replaces a rule.
func (m *Manager) AddRule(rule *Rule) error { return m.registry.Add(rule) }

// RemoveRule deletes a rule by id. No-op if absent.
func (m *Manager) RemoveRule(id string) { m.registry.Remove(id) }

// ToggleRule enables or disables a rule. No-op if absent.
func (m *Manager) ToggleRule(id string, enabled bool) { m.registry.SetEnabled(id, enabled) }

// Rules lists all registered rules.
func (m *Manager) Rules() []*Rule { return m.registry.List() }

// Subscribe registers an in-process handler for lifecycle events.
func (m *Manager) Subscribe(handler EventHandler) { m.bus.Subscribe(handler) }

// Close cancels pending escalations and stops event delivery.
func (m *Manager) Close() {
	m.scheduler.DisarmAll()
	m.bus.Stop()
}
