package services

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

// SyncRepository is the local store the sync service writes through.
type SyncRepository interface {
	SaveMonthVersion(ctx context.Context, key string, rec core.MonthRecord) (int64, error)
	DeleteMonthVersion(ctx context.Context, key string) (int64, error)
	Close() error
}

// SyncPublisher announces saved and deleted months to the sync worker.
type SyncPublisher interface {
	PublishMonthSync(ctx context.Context, key string, version int64) error
	PublishMonthDelete(ctx context.Context, key string, version int64) error
	Close() error
}

// SyncService orchestrates month writes across SQLite and AMQP.
type SyncService struct {
	storage   SyncRepository
	publisher SyncPublisher
}

// NewSyncService accepts a nil publisher; months then stay pending until the
// worker's sweep picks them up.
func NewSyncService(storage SyncRepository, publisher SyncPublisher) *SyncService {
	return &SyncService{
		storage:   storage,
		publisher: publisher,
	}
}

// SaveMonth saves a month locally and publishes a sync message.
func (s *SyncService) SaveMonth(ctx context.Context, key string, rec core.MonthRecord) error {
	// Save to SQLite first (fast, reliable)
	version, err := s.storage.SaveMonthVersion(ctx, key, rec)
	if err != nil {
		return fmt.Errorf("save month: %w", err)
	}

	if err := s.publishSyncMessage(ctx, key, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"month_key", key, "version", version, "error", err)
		// Don't fail the request - month is saved locally
	}
	return nil
}

// DeleteMonth soft deletes a month locally and publishes a delete message.
func (s *SyncService) DeleteMonth(ctx context.Context, key string) error {
	version, err := s.storage.DeleteMonthVersion(ctx, key)
	if err != nil {
		return fmt.Errorf("soft delete month: %w", err)
	}

	if err := s.publishDeleteMessage(ctx, key, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"month_key", key, "version", version, "error", err)
	}
	return nil
}

func (s *SyncService) publishSyncMessage(ctx context.Context, key string, version int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "month_key", key)
		return nil
	}
	return s.publisher.PublishMonthSync(ctx, key, version)
}

func (s *SyncService) publishDeleteMessage(ctx context.Context, key string, version int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping delete message", "month_key", key)
		return nil
	}
	return s.publisher.PublishMonthDelete(ctx, key, version)
}

// Close closes both storage and AMQP connections.
func (s *SyncService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close sync service: %v", errs)
	}
	return nil
}
