package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/frahmantamala/plant-maintenance/internal/notification"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Manage events: publish test events through the notification pipeline`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long: `Publish a test event to an in-process event bus wired to the notifier, and log the
notifications it produces. Types: task.assigned, task.status_changed, task.completed,
part.stock_adjusted, part.low_stock, collection.changed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var eventData string

func publishTestEvent(eventType string) error {
	lg := logger.LoggerWrapper()

	ev, err := events.Decode(eventType, []byte(eventData))
	if err != nil {
		return err
	}

	eventBus := events.NewEventBus(lg)
	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	dispatcher := notification.NewDispatcher(notification.Config{MaxWorkers: 1}, notification.NewLogSink(lg), lg)
	notification.NewNotifier(dispatcher, lg).Register(eventBus)

	lg.Info("publishing test event", "event_type", eventType, "event_id", ev.EventID())

	if err := eventBus.PublishSync(context.Background(), ev); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dispatcher.Shutdown(ctx)

	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "{}", "JSON payload for the event")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
