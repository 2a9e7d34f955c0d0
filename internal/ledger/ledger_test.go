package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/stripd/internal/db"
	"github.com/dokzlo13/stripd/internal/light"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestAppendAndRecent(t *testing.T) {
	l := openLedger(t)

	state := *light.New()
	first, err := l.Append(Entry{Source: "api", Command: "ON", Kind: "on", State: state, Color: "#ef0b00"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())

	state.LightLevel = 50
	state.AdjustedBrightness = 127
	_, err = l.Append(Entry{Source: "mqtt", Command: "50", Kind: "absolute", State: state, Color: "#770500"})
	require.NoError(t, err)

	entries, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "50", entries[0].Command)
	assert.Equal(t, "mqtt", entries[0].Source)
	assert.Equal(t, 127, entries[0].State.AdjustedBrightness)
	assert.Equal(t, "ON", entries[1].Command)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.Equal(t, 260, entries[1].State.Hue)

	limited, err := l.Recent(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecent_Empty(t *testing.T) {
	l := openLedger(t)
	entries, err := l.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestDeleteOlderThan(t *testing.T) {
	l := openLedger(t)

	_, err := l.Append(Entry{Source: "api", Command: "OFF", Kind: "off", Timestamp: time.Now().Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = l.Append(Entry{Source: "api", Command: "ON", Kind: "on"})
	require.NoError(t, err)

	n, err := l.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ON", entries[0].Command)
}
