package notify

import (
	"fmt"

	"github.com/driveloop/driveloop/internal/alerting"
	"github.com/driveloop/driveloop/internal/conf"
	"github.com/driveloop/driveloop/internal/logger"
)

// Configure registers senders on the dispatcher from settings. Disabled
// channels are not registered at all (dispatch skips them silently); enabled
// channels missing their destination get a sender that fails every attempt
// with ErrMisconfigured, so the problem is logged per attempt instead of
// silently dropped.
func Configure(d *Dispatcher, cfg conf.NotifySettings, log logger.Logger) {
	register(d, alerting.ChannelEmail, cfg.Email, log)
	register(d, alerting.ChannelSMS, cfg.SMS, log)
	register(d, alerting.ChannelChat, cfg.Chat, log)
	registerPager(d, cfg.Pager, log)

	if cfg.Webhook.Enabled {
		if cfg.Webhook.URL == "" {
			d.Register(alerting.ChannelWebhook,
				&misconfiguredSender{name: alerting.ChannelWebhook, reason: "missing webhook URL"},
				cfg.Webhook.Timeout.Std())
		} else {
			d.Register(alerting.ChannelWebhook, NewWebhookSender(cfg.Webhook.URL, nil), cfg.Webhook.Timeout.Std())
		}
	}
}

func register(d *Dispatcher, ch alerting.Channel, cfg conf.ChannelSettings, log logger.Logger) {
	if !cfg.Enabled {
		return
	}
	if cfg.URL == "" {
		d.Register(ch, &misconfiguredSender{name: ch, reason: "missing service URL"}, cfg.Timeout.Std())
		return
	}
	sender, err := NewShoutrrrSender(ch, cfg.URL)
	if err != nil {
		log.Error("invalid notification channel configuration",
			logger.String("channel", string(ch)),
			logger.Error(err))
		d.Register(ch, &misconfiguredSender{name: ch, reason: err.Error()}, cfg.Timeout.Std())
		return
	}
	d.Register(ch, sender, cfg.Timeout.Std())
}

// registerPager accepts either a full shoutrrr URL or a bare integration
// key, which is expanded to an opsgenie service URL.
func registerPager(d *Dispatcher, cfg conf.ChannelSettings, log logger.Logger) {
	if !cfg.Enabled {
		return
	}
	url := cfg.URL
	if url == "" && cfg.IntegrationKey != "" {
		url = fmt.Sprintf("opsgenie://api.opsgenie.com/%s", cfg.IntegrationKey)
	}
	pagerCfg := cfg
	pagerCfg.URL = url
	register(d, alerting.ChannelPager, pagerCfg, log)
}

// NewDirectNotifier builds the user-directed notifier for escalation
// recipients, preferring the chat channel and falling back to email.
// Returns nil when neither is usable; escalations then skip direct notices.
func NewDirectNotifier(cfg conf.NotifySettings, log logger.Logger) alerting.DirectNotifier {
	for _, ch := range []conf.ChannelSettings{cfg.Chat, cfg.Email} {
		if !ch.Enabled || ch.URL == "" {
			continue
		}
		direct, err := NewShoutrrrDirect(ch.URL)
		if err != nil {
			log.Warn("failed to build direct notifier", logger.Error(err))
			continue
		}
		return direct
	}
	return nil
}
