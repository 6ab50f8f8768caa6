// Package main is the entry point for the belegwerk background worker.
// It drains the detector task outbox and runs the periodic sweeps.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"belegwerk/internal/domain/anomaly"
	"belegwerk/internal/domain/tasks"
	"belegwerk/internal/infrastructure/storage/postgres"
	"belegwerk/internal/infrastructure/storage/postgres/anomaly_repo"
	"belegwerk/internal/infrastructure/storage/postgres/catalog_repo"
	"belegwerk/internal/infrastructure/storage/postgres/document_repo"
	"belegwerk/internal/infrastructure/storage/postgres/register_repo"
	"belegwerk/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting belegwerk worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	// Repositories and detector
	supplierRepo := catalog_repo.NewSupplierRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	documentRepo := document_repo.NewDocumentRepo(txManager)
	anomalyRepo := anomaly_repo.NewAnomalyRepo(txManager)
	priceRepo := register_repo.NewPriceHistoryRepo(txManager)

	detector := anomaly.NewDetector(anomalyRepo, priceRepo, productRepo, documentRepo, supplierRepo, log)

	dispatcher := &TaskDispatcher{
		detector:  detector,
		txManager: txManager,
		log:       log.WithComponent("worker.dispatcher"),
	}

	relay := postgres.NewOutboxRelay(pool.Unwrap(), getEnvInt("OUTBOX_BATCH_SIZE", 50), dispatcher)

	var wg sync.WaitGroup

	// Outbox relay loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		runRelay(ctx, relay, log)
	}()

	// Periodic sweeps
	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeps(ctx, detector, txManager, log)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// runRelay polls the outbox and dispatches pending tasks.
func runRelay(ctx context.Context, relay *postgres.OutboxRelay, log *logger.Logger) {
	interval := getEnvDuration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dlqTicker := time.NewTicker(10 * time.Minute)
	defer dlqTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := relay.ProcessBatch(ctx)
			if err != nil {
				log.WithContext(ctx).Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				log.WithContext(ctx).Debugw("outbox batch processed", "count", processed)
			}

		case <-dlqTicker.C:
			moved, err := relay.MoveToDLQ(ctx)
			if err != nil {
				log.WithContext(ctx).Errorw("DLQ sweep failed", "error", err)
				continue
			}
			if moved > 0 {
				log.WithContext(ctx).Warnw("messages moved to DLQ", "count", moved)
			}
		}
	}
}

// runSweeps runs the daily full-catalog detector sweeps. The first run
// happens shortly after startup so a restarted worker catches up.
func runSweeps(ctx context.Context, detector *anomaly.Detector, txManager *postgres.TxManager, log *logger.Logger) {
	interval := getEnvDuration("SWEEP_INTERVAL", 24*time.Hour)

	initial := time.NewTimer(1 * time.Minute)
	defer initial.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		if err := txManager.RunInTransaction(ctx, detector.LowStockSweep); err != nil {
			log.WithContext(ctx).Errorw("low stock sweep failed", "error", err)
		}
		if err := txManager.RunInTransaction(ctx, detector.MissingDeliveryNoteSweep); err != nil {
			log.WithContext(ctx).Errorw("missing delivery note sweep failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-initial.C:
			sweep()
		case <-ticker.C:
			sweep()
		}
	}
}

// TaskDispatcher routes outbox messages to detector methods.
// Each task runs in its own transaction; a returned error leaves the
// message pending for retry with backoff.
type TaskDispatcher struct {
	detector  *anomaly.Detector
	txManager *postgres.TxManager
	log       *logger.Logger
}

// Handle implements postgres.OutboxHandler.
func (d *TaskDispatcher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	d.log.WithContext(ctx).Debugw("dispatching task",
		"event_type", msg.EventType,
		"aggregate_id", msg.AggregateID.String(),
	)

	switch tasks.Type(msg.EventType) {
	case tasks.TypePriceCheck:
		var payload tasks.PriceCheck
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal price check payload: %w", err)
		}
		return d.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return d.detector.CheckPrices(ctx, payload.DocumentID)
		})

	case tasks.TypeLowStockCheck:
		var payload tasks.LowStockCheck
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal low stock payload: %w", err)
		}
		return d.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return d.detector.CheckLowStock(ctx, payload.ProductID)
		})

	case tasks.TypeDuplicateInvoiceCheck:
		var payload tasks.DuplicateInvoiceCheck
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal duplicate invoice payload: %w", err)
		}
		return d.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return d.detector.CheckDuplicateInvoice(ctx, payload.DocumentID)
		})

	case tasks.TypeNewSupplierCheck:
		var payload tasks.NewSupplierCheck
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal new supplier payload: %w", err)
		}
		return d.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return d.detector.CheckNewSupplier(ctx, payload.SupplierID, payload.DocumentID)
		})

	default:
		// Unknown event types are acknowledged, not retried forever.
		d.log.WithContext(ctx).Warnw("unknown task type", "event_type", msg.EventType)
		return nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
