package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stripd", cfg.Device.ID)
	assert.Equal(t, 60, cfg.Strip.Pixels)
	assert.Equal(t, "log", cfg.Strip.Sink)
	assert.Equal(t, "GRB", cfg.Strip.ColorOrder)
	assert.False(t, cfg.Light.ColorPowersOn)
	assert.Equal(t, "0.0.0.0:8080", cfg.API.Addr())
	assert.Equal(t, 10.0, cfg.API.RateLimitRPS)
	assert.Equal(t, "stripd/stripd", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "stripd", cfg.MQTT.ClientID)
	assert.Equal(t, 30*24*time.Hour, cfg.Ledger.Retention())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration())
}

func TestParse_Values(t *testing.T) {
	yml := `
device:
  id: bedroom
  name: Spare Bedroom
strip:
  pixels: 144
  sink: writer
  path: /dev/ttyACM0
  color_order: rgb
light:
  color_powers_on: true
api:
  enabled: true
  port: 9000
  token: secret
mqtt:
  enabled: true
  topic_prefix: home/strip/
ledger:
  enabled: true
  cleanup_interval: 1h
shutdown_timeout: 2s
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, "bedroom", cfg.Device.ID)
	assert.Equal(t, "Spare Bedroom", cfg.Device.Name)
	assert.Equal(t, 144, cfg.Strip.Pixels)
	assert.Equal(t, "writer", cfg.Strip.Sink)
	assert.Equal(t, "rgb", cfg.Strip.ColorOrder)
	assert.True(t, cfg.Light.ColorPowersOn)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, "home/strip", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "bedroom", cfg.MQTT.ClientID)
	assert.Equal(t, time.Hour, cfg.Ledger.CleanupInterval.Duration())
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout.Duration())
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("STRIPD_TEST_TOKEN", "from-env")

	cfg, err := Parse([]byte(`
api:
  token: ${STRIPD_TEST_TOKEN}
mqtt:
  password: ${STRIPD_TEST_UNSET:fallback}
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.API.Token)
	assert.Equal(t, "fallback", cfg.MQTT.Password)
}

func TestParse_BadDuration(t *testing.T) {
	_, err := Parse([]byte("shutdown_timeout: forever\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  id: x\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Device.ID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
