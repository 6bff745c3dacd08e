package events

import (
	"encoding/json"
	"fmt"
)

// Decode builds a typed event from a JSON payload. Unknown types become generic events,
// which only reach handlers subscribed to that exact type.
func Decode(eventType string, payload []byte) (Event, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	switch eventType {
	case EventTypeTaskAssigned:
		var e TaskAssignedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return NewTaskAssignedEvent(e.TaskID, e.TaskName, e.AssignedTo, e.AssignedBy, e.Priority), nil
	case EventTypeTaskStatusChanged:
		var e TaskStatusChangedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return NewTaskStatusChangedEvent(e.TaskID, e.TaskName, e.From, e.To, e.ActorID, e.AssignedTo, e.AssignedBy), nil
	case EventTypeTaskCompleted:
		var e TaskCompletedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return NewTaskCompletedEvent(e.TaskID, e.TaskName, e.ApprovedBy, e.AssignedTo, e.PartsUpdated), nil
	case EventTypePartStockAdjusted:
		var e PartStockAdjustedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return NewPartStockAdjustedEvent(e.PartID, e.TaskID, e.PreviousStock, e.NewStock), nil
	case EventTypePartLowStock:
		var e PartLowStockEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return NewPartLowStockEvent(e.PartID, e.PartName, e.Stock, e.Threshold), nil
	case EventTypeCollectionChanged:
		var e CollectionChangedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeErr(eventType, err)
		}
		return NewCollectionChangedEvent(e.Collection, e.DocumentID, e.Operation), nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, decodeErr(eventType, err)
	}
	return NewGenericEvent(eventType, data), nil
}

func decodeErr(eventType string, err error) error {
	return fmt.Errorf("decode %s payload: %w", eventType, err)
}
