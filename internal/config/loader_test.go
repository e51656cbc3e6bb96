package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
bridge:
  url: ws://robot.local:9090
action:
  server_timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://robot.local:9090", cfg.Bridge.URL)
	assert.Equal(t, 3*time.Second, cfg.Action.ServerTimeout)
	assert.Equal(t, "/navigate_to_pose", cfg.Action.Name)
	assert.Equal(t, "map", cfg.Action.Frame)
	assert.Equal(t, 100*time.Millisecond, cfg.Action.PollInterval)
	assert.Equal(t, path, cfg.SourcePath)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "service:\n  log_level: debug\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
}

func TestLoadInterpolatesEnv(t *testing.T) {
	t.Setenv("NAVGOAL_TEST_BRIDGE", "ws://10.0.0.5:9090")
	path := writeConfig(t, t.TempDir(), "bridge:\n  url: ${NAVGOAL_TEST_BRIDGE}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://10.0.0.5:9090", cfg.Bridge.URL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unset env", "bridge:\n  url: ${NAVGOAL_TEST_UNSET_VAR}\n", "NAVGOAL_TEST_UNSET_VAR"},
		{"http scheme", "bridge:\n  url: http://localhost:9090\n", "ws://"},
		{"bad log level", "service:\n  log_level: loud\n", "log_level"},
		{"bad log format", "service:\n  log_format: xml\n", "log_format"},
		{"zero timeout", "action:\n  server_timeout: 0s\n", "server_timeout"},
		{"poll above timeout", "action:\n  server_timeout: 1s\n  poll_interval: 2s\n", "poll_interval"},
		{"empty action", "action:\n  name: \"\"\n", "action.name"},
		{"status without listen", "status:\n  enabled: true\n  listen: \"\"\n", "status.listen"},
		{"not yaml", "bridge: [", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestResolveFallsBackToDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestResolveUsesEnvPath(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "action:\n  frame: odom\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "odom", cfg.Action.Frame)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Defaults())
	require.NoError(t, err)
	assert.Contains(t, string(data), "server_timeout: 10s")

	path := writeConfig(t, t.TempDir(), string(data))
	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.SourcePath = ""
	assert.Equal(t, Defaults(), cfg)
}
