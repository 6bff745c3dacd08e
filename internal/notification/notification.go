// Package notification delivers in-app messages about task and inventory activity.
// Events from the bus become jobs on a bounded queue that a worker pool drains into
// per-recipient inboxes.
package notification

import (
	"net/http"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
)

type Kind string

const (
	KindTaskAssigned  Kind = "task_assigned"
	KindStatusChanged Kind = "status_changed"
	KindTaskCompleted Kind = "task_completed"
	KindLowStock      Kind = "low_stock"
)

type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id,omitempty"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	TaskID      string    `json:"task_id,omitempty"`
	PartID      string    `json:"part_id,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job is one unit of delivery work. A job with an Audience instead of a RecipientID
// reaches every principal holding one of those roles.
type Job struct {
	Notification Notification
	Audience     []auth.Role
}

var (
	ErrNotificationNotFound = internal.NewNotFoundError("notification not found", internal.ErrCodeNotificationNotFound)
	ErrQueueFull            = &internal.AppError{
		Type:       internal.ErrorTypeInternal,
		Code:       internal.ErrCodeQueueFull,
		Message:    "notification queue is full, please try again later",
		StatusCode: http.StatusServiceUnavailable,
	}
	ErrDispatcherClosed = internal.NewInternalError("notification dispatcher is shut down", nil)
)

type NotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}
