package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL of the months table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx runs the same queries inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Month is one row of the months table.
type Month struct {
	Key        string
	Year       int64
	Month      int64
	Document   string
	Version    int64
	SyncStatus string
	DeletedAt  sql.NullInt64
	CreatedAt  int64
	UpdatedAt  int64
}

const monthColumns = `key, year, month, document, version, sync_status, deleted_at, created_at, updated_at`

func scanMonth(row interface{ Scan(...any) error }) (Month, error) {
	var m Month
	err := row.Scan(&m.Key, &m.Year, &m.Month, &m.Document, &m.Version, &m.SyncStatus, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const getMonth = `SELECT ` + monthColumns + ` FROM months WHERE key = ? AND deleted_at IS NULL`

func (q *Queries) GetMonth(ctx context.Context, key string) (Month, error) {
	return scanMonth(q.db.QueryRowContext(ctx, getMonth, key))
}

const getMonthAny = `SELECT ` + monthColumns + ` FROM months WHERE key = ?`

// GetMonthAny returns the row even when it is soft-deleted.
func (q *Queries) GetMonthAny(ctx context.Context, key string) (Month, error) {
	return scanMonth(q.db.QueryRowContext(ctx, getMonthAny, key))
}

const listMonths = `SELECT ` + monthColumns + ` FROM months WHERE deleted_at IS NULL ORDER BY year, month`

func (q *Queries) ListMonths(ctx context.Context) ([]Month, error) {
	rows, err := q.db.QueryContext(ctx, listMonths)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Month
	for rows.Next() {
		m, err := scanMonth(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const upsertMonth = `
INSERT INTO months (key, year, month, document, version, sync_status, deleted_at, created_at, updated_at)
VALUES (?, ?, ?, ?, 1, 'pending', NULL, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    document    = excluded.document,
    version     = months.version + 1,
    sync_status = 'pending',
    deleted_at  = NULL,
    updated_at  = excluded.updated_at
RETURNING version`

type UpsertMonthParams struct {
	Key      string
	Year     int64
	Month    int64
	Document string
	Now      int64
}

// UpsertMonth stores the document and returns the new version.
func (q *Queries) UpsertMonth(ctx context.Context, arg UpsertMonthParams) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, upsertMonth, arg.Key, arg.Year, arg.Month, arg.Document, arg.Now, arg.Now).Scan(&version)
	return version, err
}

const softDeleteMonth = `
UPDATE months
SET deleted_at = ?, updated_at = ?, version = version + 1, sync_status = 'pending'
WHERE key = ? AND deleted_at IS NULL`

func (q *Queries) SoftDeleteMonth(ctx context.Context, key string, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteMonth, now, now, key)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getPendingSync = `SELECT ` + monthColumns + ` FROM months
WHERE sync_status IN ('pending', 'error')
ORDER BY updated_at
LIMIT ?`

// GetPendingSync returns rows not yet exported, soft-deleted ones included.
func (q *Queries) GetPendingSync(ctx context.Context, limit int64) ([]Month, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Month
	for rows.Next() {
		m, err := scanMonth(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const setSyncStatus = `UPDATE months SET sync_status = ? WHERE key = ? AND version = ?`

// SetSyncStatus updates the status only if the row is still at version.
func (q *Queries) SetSyncStatus(ctx context.Context, key string, version int64, status string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setSyncStatus, status, key, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const purgeDeleted = `DELETE FROM months WHERE deleted_at IS NOT NULL AND sync_status = 'synced' AND deleted_at < ?`

// PurgeDeleted removes soft-deleted rows whose removal was already exported.
func (q *Queries) PurgeDeleted(ctx context.Context, before int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, purgeDeleted, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
