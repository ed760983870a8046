package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// SyncStore is the part of the SQLite repository the worker reads and acks.
type SyncStore interface {
	GetMonthVersion(ctx context.Context, key string) (core.MonthRecord, int64, error)
	IsDeleted(ctx context.Context, key string) (bool, int64, error)
	GetPendingSyncMonths(ctx context.Context, limit int) ([]storage.PendingSyncMonth, error)
	MarkSynced(ctx context.Context, key string, version int64) error
	MarkSyncError(ctx context.Context, key string, version int64) error
	PurgeDeleted(ctx context.Context, age time.Duration) (int64, error)
}

// SyncWorker exports months from SQLite to Google Sheets.
type SyncWorker struct {
	storage   SyncStore
	exporter  sheets.MonthExporter
	batchSize int
}

func NewSyncWorker(storage SyncStore, exporter sheets.MonthExporter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches a queue message; it has the amqp.Handler shape.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.MonthSyncMessage) error {
	switch msg.Type {
	case amqp.TypeDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return w.HandleSyncMessage(ctx, msg)
	}
}

// HandleSyncMessage exports the month named by msg. Messages older than the
// stored version are dropped; the newer save has its own message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.MonthSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"month_key", msg.Key,
		"version", msg.Version)

	rec, version, err := w.storage.GetMonthVersion(ctx, msg.Key)
	if errors.Is(err, core.ErrMonthNotFound) {
		slog.InfoContext(ctx, "Month no longer exists, skipping sync", "month_key", msg.Key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get month from storage: %w", err)
	}
	if msg.Version > 0 && msg.Version < version {
		slog.DebugContext(ctx, "Skipping stale sync message",
			"month_key", msg.Key,
			"message_version", msg.Version,
			"stored_version", version)
		return nil
	}

	return w.exportMonth(ctx, rec, version)
}

// HandleDeleteMessage removes the month's tab once the month is still deleted.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.MonthSyncMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "month_key", msg.Key)

	deleted, version, err := w.storage.IsDeleted(ctx, msg.Key)
	if errors.Is(err, core.ErrMonthNotFound) {
		// Tombstone already purged.
		return nil
	}
	if err != nil {
		return fmt.Errorf("check deleted month: %w", err)
	}
	if !deleted {
		slog.InfoContext(ctx, "Month was recreated, skipping delete", "month_key", msg.Key)
		return nil
	}

	return w.removeMonth(ctx, msg.Key, version)
}

func (w *SyncWorker) exportMonth(ctx context.Context, rec core.MonthRecord, version int64) error {
	if w.exporter == nil {
		slog.WarnContext(ctx, "No exporter configured, skipping Google Sheets sync", "month_key", rec.Key())
		return nil
	}

	summary := core.Recompute(&rec)
	if err := w.exporter.ExportMonth(ctx, rec, summary); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, rec.Key(), version); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "month_key", rec.Key(), "error", markErr)
		}
		return fmt.Errorf("export month to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, rec.Key(), version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "month_key", rec.Key(), "error", err)
		// Don't return error here - the sync actually worked
	}

	slog.InfoContext(ctx, "Successfully synced month",
		"month_key", rec.Key(),
		"version", version,
		"grand_savings", summary.GrandSavings.Actual.StringFixed(2))
	return nil
}

func (w *SyncWorker) removeMonth(ctx context.Context, key string, version int64) error {
	if w.exporter == nil {
		slog.WarnContext(ctx, "No exporter configured, skipping Google Sheets deletion", "month_key", key)
		return nil
	}

	if err := w.exporter.DeleteMonth(ctx, key); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, key, version); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "month_key", key, "error", markErr)
		}
		return fmt.Errorf("delete month from sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, key, version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "month_key", key, "error", err)
	}

	slog.InfoContext(ctx, "Successfully removed month from Google Sheets", "month_key", key)
	return nil
}

// ProcessPending exports months whose sync message was lost. It returns the
// number of months handled successfully.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.storage.GetPendingSyncMonths(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending months: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending months", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}

		if p.Deleted {
			err = w.removeMonth(ctx, p.Key, p.Version)
		} else {
			var rec core.MonthRecord
			var version int64
			rec, version, err = w.storage.GetMonthVersion(ctx, p.Key)
			if err == nil {
				err = w.exportMonth(ctx, rec, version)
			}
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending month", "month_key", p.Key, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck runs a larger pending sweep when the worker starts, to
// recover from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	big := *w
	big.batchSize = w.batchSize * 5

	synced, err := big.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

// PurgeDeleted drops exported tombstones older than age.
func (w *SyncWorker) PurgeDeleted(ctx context.Context, age time.Duration) error {
	n, err := w.storage.PurgeDeleted(ctx, age)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Purged deleted months", "count", n)
	}
	return nil
}
