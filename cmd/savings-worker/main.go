package main

import (
	"context"
	"errors"
	"os"

	"savings/internal/amqp"
	"savings/internal/cli"
	"savings/internal/config"
	"savings/internal/log"
	gsheet "savings/internal/sheets/google"
	"savings/internal/worker"
)

func main() {
	cfg, logger := cli.MustBootstrap("savings-worker")
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting savings-worker")

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	if cfg.DataBackend != "sqlite" {
		return errors.New("the worker mirrors the sqlite backend: set DATA_BACKEND=sqlite")
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}
	if cfg.GoogleSpreadsheetID == "" {
		return errors.New("GOOGLE_SPREADSHEET_ID is required for the worker replica")
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheets, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return err
	}
	if err := sheets.EnsureHeader(ctx); err != nil {
		logger.Warn("Could not verify sheet header", log.FieldError, err)
	}
	logger.Info("Google Sheets replica initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	w := worker.NewSyncWorker(repo, sheets, logger)
	if len(cfg.ResyncUsers) > 0 {
		if err := w.Resync(ctx, cfg.ResyncUsers); err != nil {
			// events keep flowing; the next resync retries
			logger.Error("Startup resync failed", log.FieldError, err)
		}
	}

	err = amqpClient.ConsumeTransactionEvents(ctx, w.HandleEvent)
	s := w.Stats()
	logger.Info("Worker totals",
		"upserted", s.Upserted,
		"deleted", s.Deleted,
		"skipped", s.Skipped,
		"failed", s.Failed)
	return err
}
