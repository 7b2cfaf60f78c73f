package conf

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationJSONRoundTrip(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(Duration(30 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"30s"`, string(out))

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"5m"`), &d))
	assert.Equal(t, 5*time.Minute, d.Std())

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, time.Second, d.Std())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Equal(t, time.Duration(0), d.Std())

	assert.Error(t, json.Unmarshal([]byte(`"not-a-duration"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestDurationYAML(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`90s`), &d))
	assert.Equal(t, 90*time.Second, d.Std())

	assert.Error(t, yaml.Unmarshal([]byte(`[1, 2]`), &d))

	out, err := yaml.Marshal(Duration(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "1h0m0s\n", string(out))
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, ":8080", s.Listen)
	assert.Equal(t, "driveloop-audit.db", s.AuditDB)
	assert.Equal(t, 1000, s.Engine.EventBuffer)
	assert.Equal(t, time.Minute, s.Monitor.Interval.Std())
	assert.Equal(t, "/", s.Monitor.DiskPath)
	assert.False(t, s.Notify.Email.Enabled)
	assert.Equal(t, 10*time.Second, s.Notify.Email.Timeout.Std())
	assert.Equal(t, 10*time.Second, s.Notify.Pager.Timeout.Std())
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driveloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
listen: ":9090"
monitor:
  interval: 15s
  disk_path: /data
notify:
  chat:
    enabled: true
    url: "slack://token@channel"
    timeout: 3s
  pager:
    enabled: true
    integration_key: abc123
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, ":9090", s.Listen)
	assert.Equal(t, 15*time.Second, s.Monitor.Interval.Std())
	assert.Equal(t, "/data", s.Monitor.DiskPath)
	assert.True(t, s.Notify.Chat.Enabled)
	assert.Equal(t, "slack://token@channel", s.Notify.Chat.URL)
	assert.Equal(t, 3*time.Second, s.Notify.Chat.Timeout.Std())
	assert.Equal(t, "abc123", s.Notify.Pager.IntegrationKey)
	// Unset channels keep their defaults.
	assert.False(t, s.Notify.Email.Enabled)
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("DRIVELOOP_LISTEN", ":7070")
	t.Setenv("DRIVELOOP_LOG_LEVEL", "warn")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", s.Listen)
	assert.Equal(t, "warn", s.LogLevel)
}
