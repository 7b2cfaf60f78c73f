// Package notify delivers alerts to external notification transports. Every
// transport is an opaque send(alert) capability; the dispatcher fans out to
// all requested channels concurrently and isolates failures per channel, so
// alerting never becomes a cascading failure source itself.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/driveloop/driveloop/internal/alerting"
)

// ErrMisconfigured marks a channel that is enabled but missing required
// destination configuration. It surfaces as a delivery failure per attempt.
var ErrMisconfigured = errors.New("notification channel misconfigured")

// Sender is a single notification transport.
type Sender interface {
	Name() alerting.Channel
	Send(ctx context.Context, alert *alerting.Alert) error
}

// formatTitle renders the notification subject line.
func formatTitle(alert *alerting.Alert) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title)
}

// formatBody renders the notification body.
func formatBody(alert *alerting.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", alert.Message)
	fmt.Fprintf(&b, "Type: %s\nSeverity: %s\nStatus: %s\n", alert.Type, alert.Severity, alert.Status)
	fmt.Fprintf(&b, "Triggered: %s\n", alert.TriggeredAt.Format("2006-01-02 15:04:05 MST"))
	if alert.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", alert.Source)
	}
	fmt.Fprintf(&b, "Alert ID: %s", alert.ID)
	return b.String()
}

// shoutrrrSender delivers through a shoutrrr service URL (smtp for email,
// an SMS gateway, chat services, opsgenie for paging).
type shoutrrrSender struct {
	name   alerting.Channel
	router *router.ServiceRouter
}

// NewShoutrrrSender creates a Sender for the given channel from a shoutrrr
// service URL.
func NewShoutrrrSender(name alerting.Channel, serviceURL string) (Sender, error) {
	sr, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s sender: %w", name, err)
	}
	return &shoutrrrSender{name: name, router: sr}, nil
}

func (s *shoutrrrSender) Name() alerting.Channel { return s.name }

func (s *shoutrrrSender) Send(_ context.Context, alert *alerting.Alert) error {
	params := types.Params{"title": formatTitle(alert)}
	errs := s.router.Send(formatBody(alert), &params)
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s delivery failed: %w", s.name, errors.Join(failed...))
	}
	return nil
}

// misconfiguredSender is installed when a channel is enabled but its
// destination configuration is incomplete. Every attempt fails and is
// logged, matching the contract for enabled-but-broken channels.
type misconfiguredSender struct {
	name   alerting.Channel
	reason string
}

func (s *misconfiguredSender) Name() alerting.Channel { return s.name }

func (s *misconfiguredSender) Send(context.Context, *alerting.Alert) error {
	return fmt.Errorf("%w: %s: %s", ErrMisconfigured, s.name, s.reason)
}

// ShoutrrrDirect performs user-directed notifications for escalation
// recipients over a shoutrrr service URL.
type ShoutrrrDirect struct {
	router *router.ServiceRouter
}

// NewShoutrrrDirect creates a DirectNotifier from a shoutrrr service URL.
func NewShoutrrrDirect(serviceURL string) (*ShoutrrrDirect, error) {
	sr, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create direct notifier: %w", err)
	}
	return &ShoutrrrDirect{router: sr}, nil
}

// NotifyUser sends an escalation notice addressed to a specific recipient.
func (d *ShoutrrrDirect) NotifyUser(_ context.Context, recipient string, alert *alerting.Alert) error {
	params := types.Params{"title": fmt.Sprintf("Escalation for %s: %s", recipient, formatTitle(alert))}
	errs := d.router.Send(formatBody(alert), &params)
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("direct notification to %s failed: %w", recipient, err)
		}
	}
	return nil
}
