package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/google/uuid"
)

// Queue accepts delivery jobs. Dispatcher is the production implementation.
type Queue interface {
	Enqueue(job Job) error
}

// Subscriber is the part of the event bus the notifier registers with.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Notifier turns domain events into notification jobs.
type Notifier struct {
	queue  Queue
	logger *slog.Logger
}

func NewNotifier(queue Queue, logger *slog.Logger) *Notifier {
	return &Notifier{queue: queue, logger: logger}
}

func (n *Notifier) Register(bus Subscriber) {
	for _, t := range []string{
		events.EventTypeTaskAssigned,
		events.EventTypeTaskStatusChanged,
		events.EventTypeTaskCompleted,
		events.EventTypePartLowStock,
	} {
		bus.Subscribe(t, n.HandleEvent)
	}
}

func (n *Notifier) HandleEvent(ctx context.Context, e events.Event) error {
	var errs []error
	for _, job := range JobsFor(e) {
		if err := n.queue.Enqueue(job); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		n.logger.Warn("notifications not queued", "event_type", e.EventType(), "event_id", e.EventID(), "failed", len(errs))
		return errors.Join(errs...)
	}
	return nil
}

// JobsFor maps an event to the notifications it produces. The actor who caused an
// event is never notified about it.
func JobsFor(e events.Event) []Job {
	at := e.OccurredAt()
	build := func(recipient string, kind Kind, title, message, taskID, partID string) Job {
		return Job{Notification: Notification{
			ID:          uuid.NewString(),
			RecipientID: recipient,
			Kind:        kind,
			Title:       title,
			Message:     message,
			TaskID:      taskID,
			PartID:      partID,
			CreatedAt:   at,
		}}
	}

	switch ev := e.(type) {
	case *events.TaskAssignedEvent:
		if ev.AssignedTo == "" || ev.AssignedTo == ev.AssignedBy {
			return nil
		}
		return []Job{build(ev.AssignedTo, KindTaskAssigned, "New task assigned",
			fmt.Sprintf("%s was assigned to you (%s priority)", ev.TaskName, ev.Priority), ev.TaskID, "")}

	case *events.TaskStatusChangedEvent:
		var jobs []Job
		msg := fmt.Sprintf("%s moved from %s to %s", ev.TaskName, ev.From, ev.To)
		for _, recipient := range []string{ev.AssignedTo, ev.AssignedBy} {
			if recipient == "" || recipient == ev.ActorID {
				continue
			}
			if len(jobs) > 0 && jobs[0].Notification.RecipientID == recipient {
				continue
			}
			jobs = append(jobs, build(recipient, KindStatusChanged, "Task status changed", msg, ev.TaskID, ""))
		}
		return jobs

	case *events.TaskCompletedEvent:
		if ev.AssignedTo == "" || ev.AssignedTo == ev.ApprovedBy {
			return nil
		}
		return []Job{build(ev.AssignedTo, KindTaskCompleted, "Task approved",
			fmt.Sprintf("%s was approved as completed", ev.TaskName), ev.TaskID, "")}

	case *events.PartLowStockEvent:
		name := ev.PartName
		if name == "" {
			name = ev.PartID
		}
		job := build("", KindLowStock, "Low stock",
			fmt.Sprintf("%s is down to %d in stock (threshold %d)", name, ev.Stock, ev.Threshold), "", ev.PartID)
		job.Audience = []auth.Role{auth.RoleAdmin, auth.RoleManager}
		return []Job{job}
	}
	return nil
}
