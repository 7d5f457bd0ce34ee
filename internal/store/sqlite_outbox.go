package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
)

// AppendOutbox appends a mirror operation to the outbox.
// Returns the assigned sequence number.
func (s *SQLiteStore) AppendOutbox(ctx context.Context, e *ffsync.OutboxEntry) (int64, error) {
	var updatedAt any
	if e.UpdatedAt != nil {
		updatedAt = e.UpdatedAt.Format(time.RFC3339Nano)
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (user_id, table_name, entity_id, operation, payload, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.UserID, e.TableName, e.EntityID, e.Operation, nullablePayload(e.Payload), updatedAt,
		e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("append outbox: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	e.Sequence = seq
	return seq, nil
}

// PendingOutbox returns up to limit entries in sequence order.
func (s *SQLiteStore) PendingOutbox(ctx context.Context, limit int) ([]ffsync.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, user_id, table_name, entity_id, operation, payload, updated_at, created_at
		FROM outbox
		ORDER BY sequence ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	entries := make([]ffsync.OutboxEntry, 0)
	for rows.Next() {
		var e ffsync.OutboxEntry
		var payload, updatedAt sql.NullString
		var createdAt string

		if err := rows.Scan(&e.Sequence, &e.UserID, &e.TableName, &e.EntityID, &e.Operation,
			&payload, &updatedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}

		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		if updatedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, updatedAt.String); err == nil {
				e.UpdatedAt = &t
			} else {
				slog.Warn("outbox: failed to parse updated_at", "value", updatedAt.String, "error", err)
			}
		}
		var parseErr error
		if e.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdAt); parseErr != nil {
			slog.Warn("outbox: failed to parse created_at", "value", createdAt, "error", parseErr)
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteOutbox removes a processed entry.
func (s *SQLiteStore) DeleteOutbox(ctx context.Context, sequence int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE sequence = ?`, sequence); err != nil {
		return fmt.Errorf("delete outbox entry %d: %w", sequence, err)
	}
	return nil
}

// CountOutbox returns the number of pending entries.
func (s *SQLiteStore) CountOutbox(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count outbox: %w", err)
	}
	return n, nil
}

// ClearOutbox drops every pending entry.
func (s *SQLiteStore) ClearOutbox(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox`); err != nil {
		return fmt.Errorf("clear outbox: %w", err)
	}
	return nil
}

// nullablePayload converts a json.RawMessage to a sql-friendly value.
// Returns nil for empty/null payloads, string otherwise.
func nullablePayload(p json.RawMessage) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}
