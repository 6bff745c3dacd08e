package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTaskAssigned      = "task.assigned"
	EventTypeTaskStatusChanged = "task.status_changed"
	EventTypeTaskCompleted     = "task.completed"
	EventTypePartStockAdjusted = "part.stock_adjusted"
	EventTypePartLowStock      = "part.low_stock"
	EventTypeCollectionChanged = "collection.changed"
)

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type TaskAssignedEvent struct {
	BaseEvent
	TaskID     string `json:"task_id"`
	TaskName   string `json:"task_name"`
	AssignedTo string `json:"assigned_to"`
	AssignedBy string `json:"assigned_by"`
	Priority   string `json:"priority"`
}

func NewTaskAssignedEvent(taskID, taskName, assignedTo, assignedBy, priority string) *TaskAssignedEvent {
	return &TaskAssignedEvent{
		BaseEvent: newBase(EventTypeTaskAssigned, map[string]interface{}{
			"task_id":     taskID,
			"task_name":   taskName,
			"assigned_to": assignedTo,
			"assigned_by": assignedBy,
			"priority":    priority,
		}),
		TaskID:     taskID,
		TaskName:   taskName,
		AssignedTo: assignedTo,
		AssignedBy: assignedBy,
		Priority:   priority,
	}
}

type TaskStatusChangedEvent struct {
	BaseEvent
	TaskID     string `json:"task_id"`
	TaskName   string `json:"task_name"`
	From       string `json:"from"`
	To         string `json:"to"`
	ActorID    string `json:"actor_id"`
	AssignedTo string `json:"assigned_to"`
	AssignedBy string `json:"assigned_by"`
}

func NewTaskStatusChangedEvent(taskID, taskName, from, to, actorID, assignedTo, assignedBy string) *TaskStatusChangedEvent {
	return &TaskStatusChangedEvent{
		BaseEvent: newBase(EventTypeTaskStatusChanged, map[string]interface{}{
			"task_id":     taskID,
			"task_name":   taskName,
			"from":        from,
			"to":          to,
			"actor_id":    actorID,
			"assigned_to": assignedTo,
			"assigned_by": assignedBy,
		}),
		TaskID:     taskID,
		TaskName:   taskName,
		From:       from,
		To:         to,
		ActorID:    actorID,
		AssignedTo: assignedTo,
		AssignedBy: assignedBy,
	}
}

type TaskCompletedEvent struct {
	BaseEvent
	TaskID       string `json:"task_id"`
	TaskName     string `json:"task_name"`
	ApprovedBy   string `json:"approved_by"`
	AssignedTo   string `json:"assigned_to"`
	PartsUpdated int    `json:"parts_updated"`
}

func NewTaskCompletedEvent(taskID, taskName, approvedBy, assignedTo string, partsUpdated int) *TaskCompletedEvent {
	return &TaskCompletedEvent{
		BaseEvent: newBase(EventTypeTaskCompleted, map[string]interface{}{
			"task_id":       taskID,
			"task_name":     taskName,
			"approved_by":   approvedBy,
			"assigned_to":   assignedTo,
			"parts_updated": partsUpdated,
		}),
		TaskID:       taskID,
		TaskName:     taskName,
		ApprovedBy:   approvedBy,
		AssignedTo:   assignedTo,
		PartsUpdated: partsUpdated,
	}
}

type PartStockAdjustedEvent struct {
	BaseEvent
	PartID        string `json:"part_id"`
	TaskID        string `json:"task_id"`
	PreviousStock int    `json:"previous_stock"`
	NewStock      int    `json:"new_stock"`
}

func NewPartStockAdjustedEvent(partID, taskID string, previous, next int) *PartStockAdjustedEvent {
	return &PartStockAdjustedEvent{
		BaseEvent: newBase(EventTypePartStockAdjusted, map[string]interface{}{
			"part_id":        partID,
			"task_id":        taskID,
			"previous_stock": previous,
			"new_stock":      next,
		}),
		PartID:        partID,
		TaskID:        taskID,
		PreviousStock: previous,
		NewStock:      next,
	}
}

type PartLowStockEvent struct {
	BaseEvent
	PartID    string `json:"part_id"`
	PartName  string `json:"part_name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

func NewPartLowStockEvent(partID, partName string, stock, threshold int) *PartLowStockEvent {
	return &PartLowStockEvent{
		BaseEvent: newBase(EventTypePartLowStock, map[string]interface{}{
			"part_id":   partID,
			"part_name": partName,
			"stock":     stock,
			"threshold": threshold,
		}),
		PartID:    partID,
		PartName:  partName,
		Stock:     stock,
		Threshold: threshold,
	}
}

// CollectionChangedEvent tells live subscribers of a collection to refresh.
type CollectionChangedEvent struct {
	BaseEvent
	Collection string `json:"collection"`
	DocumentID string `json:"document_id,omitempty"`
	Operation  string `json:"operation"`
}

func NewCollectionChangedEvent(collection, documentID, operation string) *CollectionChangedEvent {
	return &CollectionChangedEvent{
		BaseEvent: newBase(EventTypeCollectionChanged, map[string]interface{}{
			"collection":  collection,
			"document_id": documentID,
			"operation":   operation,
		}),
		Collection: collection,
		DocumentID: documentID,
		Operation:  operation,
	}
}

// NewGenericEvent builds an event of any type from a payload, used by the CLI.
func NewGenericEvent(eventType string, data map[string]interface{}) *BaseEvent {
	b := newBase(eventType, data)
	return &b
}
