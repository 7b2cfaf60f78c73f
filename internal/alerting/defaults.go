package alerting

import "time"

// DefaultRules returns the built-in rule set installed at startup. The
// thresholds document the intended tuning; operators can replace or disable
// any of them at runtime.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			ID:       "high_error_rate",
			Name:     "High error rate",
			Type:     TypeErrorRate,
			Severity: SeverityHigh,
			Channels: []Channel{ChannelChat, ChannelEmail},
			Cooldown: 15 * time.Minute,
			Enabled:  true,
			Condition: func(s Snapshot) bool {
				v, ok := s.Float(MetricErrorRate)
				return ok && v > 10
			},
		},
		{
			ID:       "slow_response",
			Name:     "Slow response time",
			Type:     TypePerformance,
			Severity: SeverityMedium,
			Channels: []Channel{ChannelChat},
			Cooldown: 30 * time.Minute,
			Enabled:  true,
			Condition: func(s Snapshot) bool {
				v, ok := s.Float(MetricP95LatencyMS)
				return ok && v > 3000
			},
		},
		{
			ID:       "security_threat",
			Name:     "Security threat detected",
			Type:     TypeSecurity,
			Severity: SeverityCritical,
			Channels: []Channel{ChannelChat, ChannelEmail, ChannelPager},
			Cooldown: 5 * time.Minute,
			Enabled:  true,
			Condition: func(s Snapshot) bool {
				v, ok := s.Float(MetricThreatCount)
				return ok && v > 0
			},
			Escalation: &EscalationPolicy{
				Levels: []EscalationLevel{
					{
						After:    5 * time.Minute,
						Severity: SeverityCritical,
						Channels: []Channel{ChannelChat, ChannelEmail},
						Notify:   []string{"security-team"},
					},
					{
						After:    15 * time.Minute,
						Severity: SeverityCritical,
						Channels: []Channel{ChannelEmail, ChannelSMS, ChannelPager},
						Notify:   []string{"security-team", "leadership"},
					},
					{
						After:    30 * time.Minute,
						Severity: SeverityCritical,
						Channels: []Channel{ChannelEmail, ChannelSMS, ChannelChat, ChannelPager},
						Notify:   []string{"leadership"},
					},
				},
			},
		},
		{
			ID:       "low_disk_space",
			Name:     "Low disk space",
			Type:     TypeCapacity,
			Severity: SeverityMedium,
			Channels: []Channel{ChannelChat},
			Cooldown: 60 * time.Minute,
			Enabled:  true,
			Condition: func(s Snapshot) bool {
				v, ok := s.Float(MetricDiskUsage)
				return ok && v > 90
			},
		},
		{
			ID:       "revenue_anomaly",
			Name:     "Revenue anomaly",
			Type:     TypeBusiness,
			Severity: SeverityHigh,
			Channels: []Channel{ChannelEmail, ChannelChat},
			Cooldown: 120 * time.Minute,
			Enabled:  true,
			Condition: func(s Snapshot) bool {
				v, ok := s.Float(MetricRevenueDrop)
				return ok && v > 30
			},
		},
		{
			ID:       "fraud_detected",
			Name:     "Fraud detected",
			Type:     TypeFraud,
			Severity: SeverityHigh,
			Channels: []Channel{ChannelEmail, ChannelChat},
			Cooldown: 30 * time.Minute,
			Enabled:  true,
			Condition: func(s Snapshot) bool {
				v, ok := s.Float(MetricFraudScore)
				return ok && v > 80
			},
		},
	}
}
