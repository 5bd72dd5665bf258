// Package ledger provides an append-only verdict history for growmond.
// It backs the status API and keeps an audit trail of what the engine
// decided and why.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// VerdictEntry is a single recorded verdict transition
type VerdictEntry struct {
	ID          int64
	EventID     string
	Growspace   string
	Condition   string
	State       string
	Probability *float64
	Stale       bool
	Reasons     []string
	Timestamp   time.Time
}

// LightWindowEntry is a single closed 24h light-cycle window
type LightWindowEntry struct {
	ID         int64
	Growspace  string
	Status     string
	ObservedOn time.Duration
	ExpectedOn time.Duration
	Timestamp  time.Time
}

// Ledger provides append-only verdict logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// AppendVerdict records a verdict transition
func (l *Ledger) AppendVerdict(e VerdictEntry) error {
	var reasonsJSON []byte
	var err error
	if len(e.Reasons) > 0 {
		reasonsJSON, err = json.Marshal(e.Reasons)
		if err != nil {
			return fmt.Errorf("failed to marshal reasons: %w", err)
		}
	}

	var prob any
	if e.Probability != nil {
		prob = *e.Probability
	}

	stale := 0
	if e.Stale {
		stale = 1
	}

	_, err = l.db.Exec(`
		INSERT INTO verdict_ledger (event_id, growspace, condition, state, probability, stale, reasons, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.EventID, e.Growspace, e.Condition, e.State, prob, stale, string(reasonsJSON), e.Timestamp.UTC().Unix())

	return err
}

// AppendLightWindow records a light schedule evaluation
func (l *Ledger) AppendLightWindow(e LightWindowEntry) error {
	_, err := l.db.Exec(`
		INSERT INTO light_windows (growspace, status, observed_on_secs, expected_on_secs, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, e.Growspace, e.Status, int64(e.ObservedOn.Seconds()), int64(e.ExpectedOn.Seconds()), e.Timestamp.UTC().Unix())

	return err
}

// Verdicts returns the most recent verdict entries for a growspace,
// newest first. Condition may be empty to match all conditions.
func (l *Ledger) Verdicts(growspace, condition string, limit int) ([]*VerdictEntry, error) {
	query := `
		SELECT id, event_id, growspace, condition, state, probability, stale, reasons, timestamp
		FROM verdict_ledger
		WHERE growspace = ?`
	args := []any{growspace}
	if condition != "" {
		query += ` AND condition = ?`
		args = append(args, condition)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*VerdictEntry
	for rows.Next() {
		var e VerdictEntry
		var prob sql.NullFloat64
		var stale int
		var reasonsStr sql.NullString
		var ts int64

		if err := rows.Scan(&e.ID, &e.EventID, &e.Growspace, &e.Condition, &e.State, &prob, &stale, &reasonsStr, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan verdict entry: %w", err)
		}
		if prob.Valid {
			p := prob.Float64
			e.Probability = &p
		}
		e.Stale = stale != 0
		if reasonsStr.Valid && reasonsStr.String != "" {
			if err := json.Unmarshal([]byte(reasonsStr.String), &e.Reasons); err != nil {
				return nil, fmt.Errorf("failed to unmarshal reasons: %w", err)
			}
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// LightWindows returns the most recent light window entries for a
// growspace, newest first.
func (l *Ledger) LightWindows(growspace string, limit int) ([]*LightWindowEntry, error) {
	rows, err := l.db.Query(`
		SELECT id, growspace, status, observed_on_secs, expected_on_secs, timestamp
		FROM light_windows
		WHERE growspace = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, growspace, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LightWindowEntry
	for rows.Next() {
		var e LightWindowEntry
		var observed, expected, ts int64
		if err := rows.Scan(&e.ID, &e.Growspace, &e.Status, &observed, &expected, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan light window entry: %w", err)
		}
		e.ObservedOn = time.Duration(observed) * time.Second
		e.ExpectedOn = time.Duration(expected) * time.Second
		e.Timestamp = time.Unix(ts, 0).UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Cleanup removes entries older than the retention period
func (l *Ledger) Cleanup(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	res, err := l.db.Exec(`DELETE FROM verdict_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean verdict ledger: %w", err)
	}
	removed, _ := res.RowsAffected()

	res, err = l.db.Exec(`DELETE FROM light_windows WHERE timestamp < ?`, cutoff)
	if err != nil {
		return removed, fmt.Errorf("failed to clean light windows: %w", err)
	}
	n, _ := res.RowsAffected()
	return removed + n, nil
}

// RunCleanup periodically removes expired entries until the context is
// cancelled.
func (l *Ledger) RunCleanup(ctx context.Context, interval time.Duration, retentionDays int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := l.Cleanup(retentionDays)
			if err != nil {
				log.Error().Err(err).Msg("Ledger cleanup failed")
				continue
			}
			if removed > 0 {
				log.Debug().Int64("removed", removed).Msg("Ledger cleanup completed")
			}
		}
	}
}
