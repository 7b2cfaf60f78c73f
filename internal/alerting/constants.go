// Package alerting provides the operational alerting and escalation engine:
// a rule registry evaluated against metrics snapshots, an in-memory alert
// store with a lifecycle state machine, per-rule cooldown suppression, and
// time-based escalation of unresolved alerts.
package alerting

// AlertType classifies what an alert is about.
type AlertType string

const (
	TypeSecurity     AlertType = "security"
	TypePerformance  AlertType = "performance"
	TypeErrorRate    AlertType = "error_rate"
	TypeAvailability AlertType = "availability"
	TypeCapacity     AlertType = "capacity"
	TypeBusiness     AlertType = "business"
	TypeCompliance   AlertType = "compliance"
	TypeFraud        AlertType = "fraud"
)

// Severity orders alerts by urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank maps severities to a comparable priority. Unknown severities
// rank below low.
var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Above reports whether s is strictly higher priority than other.
func (s Severity) Above(other Severity) bool {
	return severityRank[s] > severityRank[other]
}

// Status is an alert's lifecycle state.
type Status string

const (
	StatusTriggered     Status = "triggered"
	StatusAcknowledged  Status = "acknowledged"
	StatusInvestigating Status = "investigating"
	StatusEscalated     Status = "escalated"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusFalsePositive
}

// canTransition is the single source of truth for the lifecycle state machine.
func canTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusAcknowledged:
		return from == StatusTriggered || from == StatusEscalated
	case StatusInvestigating:
		return from == StatusAcknowledged || from == StatusInvestigating
	case StatusEscalated:
		return true // any non-terminal alert can be escalated
	case StatusResolved, StatusFalsePositive:
		return true // reachable from any non-terminal status
	default:
		return false
	}
}

// Channel identifies a notification transport.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelChat      Channel = "chat"
	ChannelWebhook   Channel = "webhook"
	ChannelPager     Channel = "pager"
	ChannelDashboard Channel = "dashboard"
)

// Metric names recognized by the default rule set. Snapshot producers are
// free to add more; rules address metrics by key.
const (
	MetricErrorRate    = "error_rate"
	MetricP95LatencyMS = "p95_latency_ms"
	MetricThreatCount  = "threat_count"
	MetricDiskUsage    = "disk_usage_percent"
	MetricCPUUsage     = "cpu_usage_percent"
	MetricMemoryUsage  = "memory_usage_percent"
	MetricRevenueDrop  = "revenue_drop_percent"
	MetricFraudScore   = "fraud_score"
)

// defaultChannels maps a severity to the channel set used when an alert is
// created without explicit channels. Shared by the rule-driven and ad hoc
// paths so the two never diverge.
var defaultChannels = map[Severity][]Channel{
	SeverityCritical: {ChannelEmail, ChannelSMS, ChannelChat, ChannelPager},
	SeverityHigh:     {ChannelEmail, ChannelChat},
	SeverityMedium:   {ChannelChat},
	SeverityLow:      {ChannelDashboard},
}

// channelsFor resolves the channel set for an alert: explicit channels win,
// otherwise the severity default applies.
func channelsFor(severity Severity, explicit []Channel) []Channel {
	if len(explicit) > 0 {
		return explicit
	}
	if chans, ok := defaultChannels[severity]; ok {
		return chans
	}
	return []Channel{ChannelDashboard}
}
