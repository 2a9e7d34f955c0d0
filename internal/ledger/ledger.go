// Package ledger provides an append-only history of the commands applied to
// the strip. It is an audit trail only; the light state is never rebuilt from it.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/light"
)

// Entry represents a single applied command
type Entry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Command   string      `json:"command"`
	Kind      string      `json:"kind"`
	State     light.State `json:"state"`
	Color     string      `json:"color"`
}

// Ledger stores entries in the command_ledger table
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append records an entry. Missing ID and Timestamp are filled in.
func (l *Ledger) Append(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = e.Timestamp.UTC()

	_, err := l.db.Exec(`
		INSERT INTO command_ledger (
			id, timestamp, source, command, kind,
			light_level, hue, saturation, brightness, adjusted_brightness, color
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Timestamp.UnixNano(), e.Source, e.Command, e.Kind,
		e.State.LightLevel, e.State.Hue, e.State.Saturation, e.State.Brightness, e.State.AdjustedBrightness,
		e.Color,
	)
	return e, err
}

// Recent returns up to limit entries, newest first. Entries are ordered by
// command time since the bus may deliver them out of order.
func (l *Ledger) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.Query(`
		SELECT id, timestamp, source, command, kind,
			light_level, hue, saturation, brightness, adjusted_brightness, color
		FROM command_ledger
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var ts int64
		err := rows.Scan(
			&e.ID, &ts, &e.Source, &e.Command, &e.Kind,
			&e.State.LightLevel, &e.State.Hue, &e.State.Saturation, &e.State.Brightness, &e.State.AdjustedBrightness,
			&e.Color,
		)
		if err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixNano()
	result, err := l.db.Exec(`DELETE FROM command_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RunCleanup deletes expired entries every interval until ctx is cancelled.
func (l *Ledger) RunCleanup(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Ledger cleanup failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("Ledger cleanup")
			}
		}
	}
}
