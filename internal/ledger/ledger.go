// Package ledger provides an append-only history of publish runs.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dokzlo13/deskops/internal/publish"
	"github.com/dokzlo13/deskops/internal/reconcile"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	RunID     string
	EventType publish.EventType
	Timestamp time.Time
	Account   string
	DryRun    bool
	Kind      reconcile.Kind
	Name      string
	Group     string
	SourceID  *int64
	TargetID  *int64
	Payload   map[string]any
	Error     string
}

// Ledger provides append-only event logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds a new event to the ledger. A zero Timestamp means now.
// Created events use INSERT OR IGNORE so a record is logged once per run
// (enforced by the unique partial index).
func (l *Ledger) Append(ctx context.Context, e Entry) error {
	var payloadJSON []byte
	var err error

	if e.Payload != nil {
		payloadJSON, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	insertSQL := `INSERT INTO publish_ledger (run_id, event_type, timestamp, account, dry_run, kind, name, group_name, source_id, target_id, payload, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if e.EventType == publish.EventGroupCreated || e.EventType == publish.EventServiceCreated {
		insertSQL = `INSERT OR IGNORE INTO publish_ledger (run_id, event_type, timestamp, account, dry_run, kind, name, group_name, source_id, target_id, payload, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}

	_, err = l.db.ExecContext(ctx, insertSQL,
		e.RunID, string(e.EventType), ts.UTC().Unix(), e.Account, e.DryRun,
		nullString(string(e.Kind)), nullString(e.Name), nullString(e.Group),
		nullInt(e.SourceID), nullInt(e.TargetID), nullString(string(payloadJSON)), nullString(e.Error),
	)
	return err
}

// Record implements publish.Recorder
func (l *Ledger) Record(ctx context.Context, e publish.Event) error {
	entry := Entry{
		RunID:     e.RunID,
		EventType: e.Type,
		Account:   e.Account,
		DryRun:    e.DryRun,
		Kind:      e.Kind,
		Name:      e.Name,
		Group:     e.Group,
		TargetID:  e.TargetID,
		Error:     e.Error,
	}
	if e.Kind != "" {
		source := e.SourceID
		entry.SourceID = &source
	}
	if e.Payload != nil {
		payload, err := toMap(e.Payload)
		if err != nil {
			return err
		}
		entry.Payload = payload
	}
	return l.Append(ctx, entry)
}

// ByRun returns the entries of one run in insertion order
func (l *Ledger) ByRun(ctx context.Context, runID string) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+columns+`
		FROM publish_ledger
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// Recent returns the newest entries first
func (l *Ledger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+columns+`
		FROM publish_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.ExecContext(ctx, `
		DELETE FROM publish_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const columns = `id, run_id, event_type, timestamp, account, dry_run, kind, name, group_name, source_id, target_id, payload, error`

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var kind, name, group, payloadStr, errStr sql.NullString
		var sourceID, targetID sql.NullInt64
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.EventType, &timestamp, &entry.Account, &entry.DryRun,
			&kind, &name, &group, &sourceID, &targetID, &payloadStr, &errStr,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		entry.Kind = reconcile.Kind(kind.String)
		entry.Name = name.String
		entry.Group = group.String
		entry.Error = errStr.String
		if sourceID.Valid {
			v := sourceID.Int64
			entry.SourceID = &v
		}
		if targetID.Valid {
			v := targetID.Int64
			entry.TargetID = &v
		}

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
