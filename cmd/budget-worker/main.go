package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/adapters"
	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/log"
	"budget/internal/services"
	gsheet "budget/internal/sheets/google"
	"budget/internal/worker"
)

// Exported tombstones are kept this long before they are purged.
const tombstoneRetention = 7 * 24 * time.Hour

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(log.New(log.DefaultConfig()))
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	logger.Info("Starting budget-worker")

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// AMQP is optional; without it the periodic sweep does all the syncing.
	var (
		amqpClient *amqp.Client
		publisher  services.SyncPublisher
	)
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing with periodic sync only", "error", err)
		} else {
			amqpClient, publisher = client, client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - months sync on the periodic sweep only")
	}

	syncService := services.NewSyncService(sqliteRepo, publisher)
	defer func() {
		if err := syncService.Close(); err != nil {
			logger.Error("Failed to close resources", "error", err)
		}
	}()

	budget := services.NewBudgetService(adapters.NewSQLiteAdapter(sqliteRepo, syncService), logger)
	rollover := services.NewRolloverProcessor(budget)

	var syncWorker *worker.SyncWorker
	if cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, gsheet.CredentialsFromConfig(cfg))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		syncWorker = worker.NewSyncWorker(sqliteRepo, sheetsClient, cfg.SyncBatchSize)
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runRollover(gctx, logger, rollover)
		ticker := time.NewTicker(cfg.RolloverInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				runRollover(gctx, logger, rollover)
			}
		}
	})

	if syncWorker != nil {
		// On startup, export any months whose messages were missed
		logger.Info("Performing startup sync check...")
		if err := syncWorker.StartupSyncCheck(gctx); err != nil {
			logger.Error("Failed startup sync check", "error", err)
		}

		if amqpClient != nil {
			g.Go(func() error {
				err := amqpClient.Consume(gctx, syncWorker.HandleMessage)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		} else {
			logger.Info("Skipping AMQP message consumption - no client available")
		}

		g.Go(func() error {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if _, err := syncWorker.ProcessPending(gctx); err != nil {
						logger.Error("Periodic sync failed", "error", err)
					}
					if err := syncWorker.PurgeDeleted(gctx, tombstoneRetention); err != nil {
						logger.Error("Purging deleted months failed", "error", err)
					}
				}
			}
		})
	} else {
		logger.Info("Skipping Google Sheets sync operations - no client available")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

func runRollover(ctx context.Context, logger *log.Logger, p *services.RolloverProcessor) {
	created, err := p.ProcessRollover(ctx, time.Now())
	if err != nil {
		logger.ErrorContext(ctx, "Month rollover failed", "error", err)
		return
	}
	if created {
		logger.InfoContext(ctx, "Month rollover created the current month")
	}
}
