package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"

	_ "modernc.org/sqlite"
)

// Sync states of a month row.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps modernc from returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func decodeDocument(m Month) (core.MonthRecord, error) {
	var rec core.MonthRecord
	if err := json.Unmarshal([]byte(m.Document), &rec); err != nil {
		return core.MonthRecord{}, fmt.Errorf("decode month %s: %w", m.Key, err)
	}
	return rec, nil
}

// GetMonth implements sheets.MonthStore.
func (r *SQLiteRepository) GetMonth(ctx context.Context, key string) (core.MonthRecord, error) {
	rec, _, err := r.GetMonthVersion(ctx, key)
	return rec, err
}

// GetMonthVersion returns the month together with its row version.
func (r *SQLiteRepository) GetMonthVersion(ctx context.Context, key string) (core.MonthRecord, int64, error) {
	m, err := r.queries.GetMonth(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthRecord{}, 0, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
	}
	if err != nil {
		return core.MonthRecord{}, 0, fmt.Errorf("get month: %w", err)
	}
	rec, err := decodeDocument(m)
	return rec, m.Version, err
}

// SaveMonth implements sheets.MonthStore. Every save bumps the version and
// marks the row for export.
func (r *SQLiteRepository) SaveMonth(ctx context.Context, key string, rec core.MonthRecord) error {
	_, err := r.SaveMonthVersion(ctx, key, rec)
	return err
}

// SaveMonthVersion is SaveMonth returning the stored version.
func (r *SQLiteRepository) SaveMonthVersion(ctx context.Context, key string, rec core.MonthRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	if key != rec.Key() {
		return 0, fmt.Errorf("%w: key %q does not match %s", core.ErrInvalidMonthKey, key, rec.Key())
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode month: %w", err)
	}

	version, err := r.queries.UpsertMonth(ctx, UpsertMonthParams{
		Key:      key,
		Year:     int64(rec.Year),
		Month:    int64(rec.Month),
		Document: string(doc),
		Now:      r.now().Unix(),
	})
	if err != nil {
		return 0, fmt.Errorf("save month: %w", err)
	}

	slog.DebugContext(ctx, "Month saved to SQLite", "month_key", key, "version", version)
	return version, nil
}

// GetAllMonths implements sheets.MonthStore.
func (r *SQLiteRepository) GetAllMonths(ctx context.Context) ([]core.MonthRecord, error) {
	rows, err := r.queries.ListMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	out := make([]core.MonthRecord, 0, len(rows))
	for _, m := range rows {
		rec, err := decodeDocument(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteMonth implements sheets.MonthStore. The row is kept, soft-deleted,
// until the worker has removed the month from the spreadsheet.
func (r *SQLiteRepository) DeleteMonth(ctx context.Context, key string) error {
	_, err := r.DeleteMonthVersion(ctx, key)
	return err
}

// DeleteMonthVersion soft-deletes the month and returns the tombstone version.
func (r *SQLiteRepository) DeleteMonthVersion(ctx context.Context, key string) (int64, error) {
	n, err := r.queries.SoftDeleteMonth(ctx, key, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete month: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
	}
	m, err := r.queries.GetMonthAny(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read deleted month: %w", err)
	}
	slog.InfoContext(ctx, "Month soft-deleted", "month_key", key, "version", m.Version)
	return m.Version, nil
}

// PendingSyncMonth is the minimum the worker needs to queue an export.
type PendingSyncMonth struct {
	Key       string
	Version   int64
	Deleted   bool
	UpdatedAt time.Time
}

// GetPendingSyncMonths returns up to limit months waiting for export,
// oldest change first.
func (r *SQLiteRepository) GetPendingSyncMonths(ctx context.Context, limit int) ([]PendingSyncMonth, error) {
	rows, err := r.queries.GetPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync months: %w", err)
	}
	out := make([]PendingSyncMonth, len(rows))
	for i, m := range rows {
		out[i] = PendingSyncMonth{
			Key:       m.Key,
			Version:   m.Version,
			Deleted:   m.DeletedAt.Valid,
			UpdatedAt: time.Unix(m.UpdatedAt, 0),
		}
	}
	return out, nil
}

// IsDeleted reports whether key exists only as a tombstone.
func (r *SQLiteRepository) IsDeleted(ctx context.Context, key string) (bool, int64, error) {
	m, err := r.queries.GetMonthAny(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
	}
	if err != nil {
		return false, 0, fmt.Errorf("get month: %w", err)
	}
	return m.DeletedAt.Valid, m.Version, nil
}

// MarkSynced records a successful export of version. A newer save in the
// meantime leaves the row pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, key string, version int64) error {
	n, err := r.queries.SetSyncStatus(ctx, key, version, SyncSynced)
	if err != nil {
		return fmt.Errorf("mark month synced: %w", err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Month changed during sync, leaving pending", "month_key", key, "version", version)
		return nil
	}
	slog.InfoContext(ctx, "Month marked as synced", "month_key", key, "version", version)
	return nil
}

// MarkSyncError records a failed export of version.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, key string, version int64) error {
	if _, err := r.queries.SetSyncStatus(ctx, key, version, SyncError); err != nil {
		return fmt.Errorf("mark month sync error: %w", err)
	}
	slog.WarnContext(ctx, "Month marked with sync error", "month_key", key, "version", version)
	return nil
}

// PurgeDeleted drops tombstones older than age whose removal was exported.
func (r *SQLiteRepository) PurgeDeleted(ctx context.Context, age time.Duration) (int64, error) {
	n, err := r.queries.PurgeDeleted(ctx, r.now().Add(-age).Unix())
	if err != nil {
		return 0, fmt.Errorf("purge deleted months: %w", err)
	}
	return n, nil
}
