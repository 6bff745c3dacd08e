package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/frahmantamala/plant-maintenance/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/plant-maintenance/internal/dashboard/postgres"
	"github.com/frahmantamala/plant-maintenance/internal/notification"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background worker pools, such as the low-stock notification sweep.`,
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Start the low-stock notification worker",
	Long:  `Periodically scan parts at or below the low-stock threshold and deliver alerts through the notification worker pool`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startNotificationWorker()
	},
}

var (
	maxWorkers     int
	jobQueueSize   int
	workerPoolSize int
	sweepInterval  time.Duration
)

func startNotificationWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.InitWithConfig(os.Stdout, config.Observability.Logging.Level, config.Observability.Logging.Format)

	db, err := initDB(config.Database)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer db.Close()

	notifConfig := notification.Config{
		MaxWorkers:     getIntFlag(maxWorkers, config.Notification.MaxWorkers),
		JobQueueSize:   getIntFlag(jobQueueSize, config.Notification.JobQueueSize),
		WorkerPoolSize: getIntFlag(workerPoolSize, config.Notification.WorkerPoolSize),
	}
	dispatcher := notification.NewDispatcher(notifConfig, notification.NewLogSink(lg), lg)

	lg.Info("starting notification worker",
		"max_workers", notifConfig.MaxWorkers,
		"job_queue_size", notifConfig.JobQueueSize,
		"interval", sweepInterval,
		"threshold", config.Inventory.LowStockThreshold)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sweepInterval <= 0 {
		sweepInterval = 15 * time.Minute
	}
	repo := dashboardPostgres.NewRepository(db)
	threshold := config.Inventory.LowStockThreshold

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		sweepLowStock(ctx, repo, dispatcher, threshold, lg)

		select {
		case <-ctx.Done():
			lg.Info("received signal, shutting down notification worker")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			dispatcher.Shutdown(shutdownCtx)
			cancel()
			lg.Info("notification worker pool shutdown complete")
			return nil
		case <-ticker.C:
		}
	}
}

func sweepLowStock(ctx context.Context, repo dashboard.RepositoryAPI, queue notification.Queue, threshold int, lg *slog.Logger) {
	parts, err := repo.LowStockParts(ctx, threshold)
	if err != nil {
		lg.Error("low stock sweep failed", "error", err)
		return
	}

	for _, p := range parts {
		ev := events.NewPartLowStockEvent(p.ID, p.Name, p.Stock, threshold)
		for _, job := range notification.JobsFor(ev) {
			if err := queue.Enqueue(job); err != nil {
				if errors.Is(err, notification.ErrQueueFull) {
					lg.Warn("notification queue full, sweep cut short", "part_id", p.ID)
					return
				}
				lg.Error("failed to enqueue low stock alert", "part_id", p.ID, "error", err)
			}
		}
	}
	lg.Info("low stock sweep complete", "parts", len(parts))
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	notificationWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	notificationWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	notificationWorkerCmd.Flags().IntVar(&workerPoolSize, "worker-pool-size", 0, "Worker pool channel size (overrides config)")
	notificationWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 15*time.Minute, "Time between low-stock sweeps")

	workerCmd.AddCommand(notificationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
