package adapters

import (
	"context"

	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/storage"
)

// SQLiteAdapter implements sheets.MonthStore on top of SQLiteRepository.
// Reads go straight to SQLite; writes go through SyncService so every save
// and delete is announced to the sync worker.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.SyncService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.SyncService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) GetMonth(ctx context.Context, key string) (core.MonthRecord, error) {
	return a.storage.GetMonth(ctx, key)
}

func (a *SQLiteAdapter) SaveMonth(ctx context.Context, key string, rec core.MonthRecord) error {
	return a.service.SaveMonth(ctx, key, rec)
}

func (a *SQLiteAdapter) GetAllMonths(ctx context.Context) ([]core.MonthRecord, error) {
	return a.storage.GetAllMonths(ctx)
}

func (a *SQLiteAdapter) DeleteMonth(ctx context.Context, key string) error {
	return a.service.DeleteMonth(ctx, key)
}

// Ping reports whether the database answers.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
