package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/stripd/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
device:
  id: bench
  name: Bench Strip
strip:
  pixels: 8
  sink: memory
ledger:
  enabled: true
  path: ` + filepath.Join(t.TempDir(), "ledger.sqlite") + `
`))
	require.NoError(t, err)
	return cfg
}

func TestServices_ApplyIsRecorded(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServices(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartCore(ctx)
	require.NoError(t, s.StartTransports(ctx, func(err error) { t.Errorf("fatal: %v", err) }))
	defer s.Close()

	level, err := s.Apply(ctx, "cli", "25")
	require.NoError(t, err)
	assert.Equal(t, 25, level)

	v, err := s.Device.Variable(ctx, "lightLevel")
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	assert.Eventually(t, func() bool {
		entries, err := s.Ledger.Recent(10)
		return err == nil && len(entries) == 1
	}, time.Second, 10*time.Millisecond)

	entries, err := s.Ledger.Recent(10)
	require.NoError(t, err)
	assert.Equal(t, "cli", entries[0].Source)
	assert.Equal(t, "25", entries[0].Command)
	assert.Equal(t, 25, entries[0].State.LightLevel)
}

func TestNewServices_BadColorOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strip.ColorOrder = "RGBW"
	_, err := NewServices(cfg)
	assert.Error(t, err)
}

func TestNewServices_BadScript(t *testing.T) {
	cfg := testConfig(t)
	cfg.Script = filepath.Join(t.TempDir(), "missing.lua")
	_, err := NewServices(cfg)
	assert.Error(t, err)
}
