// Package sqlite provides a SQLite-backed registry storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/linktrue/linktrue/internal/platform/storage/sqlitemigrate"
	"github.com/linktrue/linktrue/internal/registry/domain"
	"github.com/linktrue/linktrue/internal/registry/event"
	"github.com/linktrue/linktrue/internal/registry/storage"
	"github.com/linktrue/linktrue/internal/registry/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists registry state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite registry store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// PutProfiles upserts the given profile records in one transaction.
func (s *Store) PutProfiles(ctx context.Context, records ...domain.ProfileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(records) == 0 {
		return nil
	}
	for _, record := range records {
		if record.Address.IsZero() {
			return fmt.Errorf("profile address is required")
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put profiles: %w", err)
	}
	for _, record := range records {
		if err := putProfileTx(ctx, tx, record); err != nil {
			_ = tx.Rollback()
			if isUniqueViolation(err) {
				return storage.ErrConflict
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put profiles: %w", err)
	}
	return nil
}

func putProfileTx(ctx context.Context, tx *sql.Tx, record domain.ProfileRecord) error {
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO profiles (address, username, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (address) DO UPDATE SET
		   username = excluded.username,
		   updated_at = excluded.updated_at`,
		record.Address.String(),
		record.Username,
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM profile_items WHERE address = ?`,
		record.Address.String(),
	); err != nil {
		return fmt.Errorf("clear profile items: %w", err)
	}
	for position, item := range record.Items {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO profile_items (address, position, key, value)
			 VALUES (?, ?, ?, ?)`,
			record.Address.String(),
			position,
			item.Key,
			item.Value,
		); err != nil {
			return fmt.Errorf("insert profile item: %w", err)
		}
	}
	return nil
}

// ListProfiles returns every persisted profile record with its items in
// stored order.
func (s *Store) ListProfiles(ctx context.Context) ([]domain.ProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT address, username, updated_at FROM profiles ORDER BY address`,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var records []domain.ProfileRecord
	index := make(map[domain.Address]int)
	for rows.Next() {
		var (
			address   string
			username  string
			updatedAt int64
		)
		if err := rows.Scan(&address, &username, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		index[domain.Address(address)] = len(records)
		records = append(records, domain.ProfileRecord{
			Address:   domain.Address(address),
			Username:  username,
			UpdatedAt: fromMillis(updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	itemRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT address, key, value FROM profile_items ORDER BY address, position`,
	)
	if err != nil {
		return nil, fmt.Errorf("list profile items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var address, key, value string
		if err := itemRows.Scan(&address, &key, &value); err != nil {
			return nil, fmt.Errorf("scan profile item: %w", err)
		}
		i, ok := index[domain.Address(address)]
		if !ok {
			continue
		}
		records[i].Items = append(records[i].Items, domain.Item{Key: key, Value: value})
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile items: %w", err)
	}
	return records, nil
}

// AppendEvent stores one event and returns its assigned sequence number.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.ID) == "" {
		return 0, fmt.Errorf("event id is required")
	}
	if evt.Type == "" {
		return 0, fmt.Errorf("event type is required")
	}

	timestamp := evt.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO registry_events (id, type, actor, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		evt.ID,
		string(evt.Type),
		evt.Actor.String(),
		string(payload),
		toMillis(timestamp),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrConflict
		}
		return 0, fmt.Errorf("append event: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event sequence: %w", err)
	}
	return uint64(seq), nil
}

// Append implements event.Sink over AppendEvent.
func (s *Store) Append(ctx context.Context, evt event.Event) error {
	_, err := s.AppendEvent(ctx, evt)
	return err
}

// ListEvents returns up to limit events in ascending sequence order; a
// non-positive limit returns all.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `SELECT seq, id, type, actor, payload, created_at
		 FROM registry_events ORDER BY seq`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			seq       uint64
			id        string
			typ       string
			actor     string
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&seq, &id, &typ, &actor, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event.Event{
			ID:          id,
			Seq:         seq,
			Timestamp:   fromMillis(createdAt),
			Type:        event.Type(typ),
			Actor:       domain.Address(actor),
			PayloadJSON: []byte(payload),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed")
}

var (
	_ storage.ProfileStore = (*Store)(nil)
	_ storage.EventJournal = (*Store)(nil)
	_ event.Sink           = (*Store)(nil)
)
