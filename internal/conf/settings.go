// Package conf loads application settings from environment variables and an
// optional YAML file via Viper. All keys can be supplied as environment
// variables with the DRIVELOOP_ prefix, e.g. DRIVELOOP_NOTIFY_EMAIL_ENABLED.
package conf

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ChannelSettings configures a single notification transport.
type ChannelSettings struct {
	Enabled        bool     `mapstructure:"enabled"`
	URL            string   `mapstructure:"url"`             // shoutrrr service URL or webhook endpoint
	Recipients     []string `mapstructure:"recipients"`      // recipient addresses, where applicable
	IntegrationKey string   `mapstructure:"integration_key"` // pager integration key
	Timeout        Duration `mapstructure:"timeout"`
}

// NotifySettings configures all notification channels.
type NotifySettings struct {
	Email   ChannelSettings `mapstructure:"email"`
	SMS     ChannelSettings `mapstructure:"sms"`
	Chat    ChannelSettings `mapstructure:"chat"`
	Webhook ChannelSettings `mapstructure:"webhook"`
	Pager   ChannelSettings `mapstructure:"pager"`
}

// EngineSettings tunes the alerting engine.
type EngineSettings struct {
	EventBuffer int `mapstructure:"event_buffer"` // capacity of the lifecycle event bus
}

// MonitorSettings tunes the metrics snapshot collector.
type MonitorSettings struct {
	Interval Duration `mapstructure:"interval"`
	DiskPath string   `mapstructure:"disk_path"`
}

// Settings is the full application configuration.
type Settings struct {
	LogLevel string          `mapstructure:"log_level"`
	Listen   string          `mapstructure:"listen"` // HTTP listen address
	AuditDB  string          `mapstructure:"audit_db"`
	Engine   EngineSettings  `mapstructure:"engine"`
	Notify   NotifySettings  `mapstructure:"notify"`
	Monitor  MonitorSettings `mapstructure:"monitor"`
}

// Load reads settings from the given YAML file (optional, "" skips the file)
// and the environment. Environment variables win over file values.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("DRIVELOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("listen", ":8080")
	v.SetDefault("audit_db", "driveloop-audit.db")
	v.SetDefault("engine.event_buffer", 1000)
	v.SetDefault("monitor.interval", "60s")
	v.SetDefault("monitor.disk_path", "/")
	for _, ch := range []string{"email", "sms", "chat", "webhook", "pager"} {
		v.SetDefault("notify."+ch+".enabled", false)
		v.SetDefault("notify."+ch+".timeout", "10s")
	}
}
