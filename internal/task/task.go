package task

import (
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	taskDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/task"
	"github.com/frahmantamala/plant-maintenance/internal/inventory"
)

const Collection = "tasks"

type Status string

const (
	StatusPending        Status = "Pending"
	StatusInProgress     Status = "InProgress"
	StatusReadyForReview Status = "ReadyForReview"
	StatusCompleted      Status = "Completed"
	StatusCancelled      Status = "Cancelled"
)

// allStatuses is in lifecycle order; offered target lists keep this order.
var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusReadyForReview,
	StatusCompleted,
	StatusCancelled,
}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func Statuses() []string {
	out := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		out[i] = string(s)
	}
	return out
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func Priorities() []string {
	return []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityCritical)}
}

type PlantCategory string

const (
	CategoryBatching  PlantCategory = "batching"
	CategoryMixing    PlantCategory = "mixing"
	CategoryConveying PlantCategory = "conveying"
	CategoryPacking   PlantCategory = "packing"
	CategoryHeating   PlantCategory = "heating"
	CategoryMilling   PlantCategory = "milling"
)

func (c PlantCategory) Valid() bool {
	switch c {
	case CategoryBatching, CategoryMixing, CategoryConveying, CategoryPacking, CategoryHeating, CategoryMilling:
		return true
	}
	return false
}

func PlantCategories() []string {
	return []string{
		string(CategoryBatching), string(CategoryMixing), string(CategoryConveying),
		string(CategoryPacking), string(CategoryHeating), string(CategoryMilling),
	}
}

const MaxRating = 5

type ChecklistItem = taskDatamodel.ChecklistItem

type Task struct {
	ID                 string                  `json:"id"`
	Name               string                  `json:"name"`
	Description        string                  `json:"description,omitempty"`
	AssignedTo         string                  `json:"assigned_to"`
	AssignedToName     string                  `json:"assigned_to_name,omitempty"`
	AssignedBy         string                  `json:"assigned_by"`
	AssignedByName     string                  `json:"assigned_by_name,omitempty"`
	MachineID          *string                 `json:"machine_id,omitempty"`
	PlantCategory      PlantCategory           `json:"plant_category,omitempty"`
	Status             Status                  `json:"status"`
	Priority           Priority                `json:"priority"`
	DueDate            *time.Time              `json:"due_date,omitempty"`
	Rating             *int                    `json:"rating,omitempty"`
	Parts              []inventory.Consumption `json:"parts"`
	EstimatedHours     float64                 `json:"estimated_hours,omitempty"`
	EstimatedCost      float64                 `json:"estimated_cost,omitempty"`
	Checklist          []ChecklistItem         `json:"checklist"`
	Notes              string                  `json:"notes,omitempty"`
	CompletedAt        *time.Time              `json:"completed_at,omitempty"`
	CompletedBy        *string                 `json:"completed_by,omitempty"`
	ApprovedAt         *time.Time              `json:"approved_at,omitempty"`
	ApprovedBy         *string                 `json:"approved_by,omitempty"`
	InventoryAppliedAt *time.Time              `json:"inventory_applied_at,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

var (
	ErrTaskNotFound      = internal.NewNotFoundError("task not found", internal.ErrCodeTaskNotFound)
	ErrIllegalTransition = internal.NewConflictError("this status change is not allowed", internal.ErrCodeIllegalTransition)
	ErrRatingNotAllowed  = internal.NewConflictError("only completed tasks can be rated", internal.ErrCodeRatingNotAllowed)
	ErrPartsLocked       = internal.NewConflictError("parts cannot change once inventory has been applied", internal.ErrCodeIllegalTransition)
)

// Participants returns the employee ids referenced by the tasks.
func Participants(tasks []*Task) []string {
	ids := make([]string, 0, len(tasks)*2)
	for _, t := range tasks {
		ids = append(ids, t.AssignedTo, t.AssignedBy)
	}
	return ids
}

// Resolve fills the display names from an id to name directory.
func Resolve(tasks []*Task, names map[string]string) {
	for _, t := range tasks {
		t.AssignedToName = names[t.AssignedTo]
		t.AssignedByName = names[t.AssignedBy]
	}
}

func ToDataModel(t *Task) *taskDatamodel.Task {
	parts := make([]taskDatamodel.TaskPart, len(t.Parts))
	for i, p := range t.Parts {
		parts[i] = taskDatamodel.TaskPart{
			TaskID:   t.ID,
			PartID:   p.PartID,
			Quantity: p.Quantity,
			Position: i,
		}
	}
	return &taskDatamodel.Task{
		ID:                 t.ID,
		Name:               t.Name,
		Description:        t.Description,
		AssignedTo:         t.AssignedTo,
		AssignedBy:         t.AssignedBy,
		MachineID:          t.MachineID,
		PlantCategory:      string(t.PlantCategory),
		Status:             string(t.Status),
		Priority:           string(t.Priority),
		DueDate:            t.DueDate,
		Rating:             t.Rating,
		Parts:              parts,
		EstimatedHours:     t.EstimatedHours,
		EstimatedCost:      t.EstimatedCost,
		Checklist:          t.Checklist,
		Notes:              t.Notes,
		CompletedAt:        t.CompletedAt,
		CompletedBy:        t.CompletedBy,
		ApprovedAt:         t.ApprovedAt,
		ApprovedBy:         t.ApprovedBy,
		InventoryAppliedAt: t.InventoryAppliedAt,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func FromDataModel(row *taskDatamodel.Task) *Task {
	parts := make([]inventory.Consumption, len(row.Parts))
	for i, p := range row.Parts {
		parts[i] = inventory.Consumption{PartID: p.PartID, Quantity: p.Quantity}
	}
	checklist := row.Checklist
	if checklist == nil {
		checklist = []ChecklistItem{}
	}
	return &Task{
		ID:                 row.ID,
		Name:               row.Name,
		Description:        row.Description,
		AssignedTo:         row.AssignedTo,
		AssignedBy:         row.AssignedBy,
		MachineID:          row.MachineID,
		PlantCategory:      PlantCategory(row.PlantCategory),
		Status:             Status(row.Status),
		Priority:           Priority(row.Priority),
		DueDate:            row.DueDate,
		Rating:             row.Rating,
		Parts:              parts,
		EstimatedHours:     row.EstimatedHours,
		EstimatedCost:      row.EstimatedCost,
		Checklist:          checklist,
		Notes:              row.Notes,
		CompletedAt:        row.CompletedAt,
		CompletedBy:        row.CompletedBy,
		ApprovedAt:         row.ApprovedAt,
		ApprovedBy:         row.ApprovedBy,
		InventoryAppliedAt: row.InventoryAppliedAt,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*taskDatamodel.Task) []*Task {
	result := make([]*Task, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
