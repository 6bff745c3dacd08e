package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/core/common/validation"
	"github.com/frahmantamala/plant-maintenance/internal/inventory"
)

type CreateTaskDTO struct {
	Name           string                  `json:"name"`
	Description    string                  `json:"description,omitempty"`
	AssignedTo     string                  `json:"assigned_to"`
	MachineID      *string                 `json:"machine_id,omitempty"`
	PlantCategory  PlantCategory           `json:"plant_category,omitempty"`
	Priority       Priority                `json:"priority,omitempty"`
	DueDate        *time.Time              `json:"due_date,omitempty"`
	Parts          []inventory.Consumption `json:"parts,omitempty"`
	EstimatedHours float64                 `json:"estimated_hours,omitempty"`
	EstimatedCost  float64                 `json:"estimated_cost,omitempty"`
	Checklist      []ChecklistItem         `json:"checklist,omitempty"`
	Notes          string                  `json:"notes,omitempty"`
}

func (dto *CreateTaskDTO) Validate() error {
	dto.Name = strings.TrimSpace(dto.Name)
	dto.AssignedTo = strings.TrimSpace(dto.AssignedTo)
	if dto.Priority == "" {
		dto.Priority = PriorityMedium
	}
	dto.MachineID = blankToNil(dto.MachineID)
	dto.Checklist = cleanChecklist(dto.Checklist)

	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("assigned_to", dto.AssignedTo).Required()
	v.Field("plant_category", string(dto.PlantCategory)).OneOf(PlantCategories()...)
	v.Field("priority", string(dto.Priority)).OneOf(Priorities()...)
	v.Field("estimated_hours", dto.EstimatedHours).MinFloat(0)
	v.Field("estimated_cost", dto.EstimatedCost).MinFloat(0)
	v.Field("parts", dto.Parts).Custom(validParts)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateTaskDTO is a merge-style patch. Status changes go through transitions instead.
type UpdateTaskDTO struct {
	Name           *string                 `json:"name,omitempty"`
	Description    *string                 `json:"description,omitempty"`
	AssignedTo     *string                 `json:"assigned_to,omitempty"`
	MachineID      *string                 `json:"machine_id,omitempty"`
	PlantCategory  *PlantCategory          `json:"plant_category,omitempty"`
	Priority       *Priority               `json:"priority,omitempty"`
	DueDate        *time.Time              `json:"due_date,omitempty"`
	Parts          []inventory.Consumption `json:"parts,omitempty"`
	EstimatedHours *float64                `json:"estimated_hours,omitempty"`
	EstimatedCost  *float64                `json:"estimated_cost,omitempty"`
	Checklist      []ChecklistItem         `json:"checklist,omitempty"`
	Notes          *string                 `json:"notes,omitempty"`
	Status         *Status                 `json:"status,omitempty"`
}

func (dto *UpdateTaskDTO) Validate() error {
	if dto.Status != nil {
		return internal.NewValidationFieldError("status", "use the transitions endpoint to change status", internal.ErrCodeIllegalTransition)
	}

	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", strings.TrimSpace(*dto.Name)).Required().MaxLength(200)
	}
	if dto.AssignedTo != nil {
		v.Field("assigned_to", strings.TrimSpace(*dto.AssignedTo)).Required()
	}
	if dto.PlantCategory != nil {
		v.Field("plant_category", string(*dto.PlantCategory)).Required().OneOf(PlantCategories()...)
	}
	if dto.Priority != nil {
		v.Field("priority", string(*dto.Priority)).Required().OneOf(Priorities()...)
	}
	if dto.EstimatedHours != nil {
		v.Field("estimated_hours", *dto.EstimatedHours).MinFloat(0)
	}
	if dto.EstimatedCost != nil {
		v.Field("estimated_cost", *dto.EstimatedCost).MinFloat(0)
	}
	v.Field("parts", dto.Parts).Custom(validParts)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto *UpdateTaskDTO) Apply(t *Task) {
	if dto.Name != nil {
		t.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Description != nil {
		t.Description = *dto.Description
	}
	if dto.AssignedTo != nil {
		t.AssignedTo = strings.TrimSpace(*dto.AssignedTo)
	}
	if dto.MachineID != nil {
		t.MachineID = blankToNil(dto.MachineID)
	}
	if dto.PlantCategory != nil {
		t.PlantCategory = *dto.PlantCategory
	}
	if dto.Priority != nil {
		t.Priority = *dto.Priority
	}
	if dto.DueDate != nil {
		d := *dto.DueDate
		t.DueDate = &d
	}
	if dto.Parts != nil {
		t.Parts = dto.Parts
	}
	if dto.EstimatedHours != nil {
		t.EstimatedHours = *dto.EstimatedHours
	}
	if dto.EstimatedCost != nil {
		t.EstimatedCost = *dto.EstimatedCost
	}
	if dto.Checklist != nil {
		t.Checklist = cleanChecklist(dto.Checklist)
	}
	if dto.Notes != nil {
		t.Notes = *dto.Notes
	}
}

type TransitionDTO struct {
	Status Status `json:"status"`
}

func (dto TransitionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("status", string(dto.Status)).Required().OneOf(Statuses()...)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RatingDTO struct {
	Rating *int `json:"rating"`
}

func (dto RatingDTO) Validate() error {
	if dto.Rating == nil {
		return internal.NewValidationFieldError("rating", "rating is required", internal.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	v.Field("rating", *dto.Rating).MinInt(0, internal.ErrCodeValidationFailed).MaxInt(MaxRating, internal.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ListFilter narrows a task query. ParticipantID limits rows to tasks assigned to
// or by that employee; AssigneeOnly keeps only the assigned_to side.
type ListFilter struct {
	Status        Status
	PlantCategory PlantCategory
	Priority      Priority
	MachineID     string
	Search        string
	ParticipantID string
	AssigneeOnly  bool
	Limit         int
	Offset        int
}

type TasksResponse struct {
	Tasks  []*Task `json:"tasks"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

type TransitionOptions struct {
	TaskID        string   `json:"task_id"`
	Current       Status   `json:"current"`
	Targets       []Status `json:"targets"`
	CanTransition bool     `json:"can_transition"`
}

// TransitionResult is returned after a status change.
type TransitionResult struct {
	Task         *Task                  `json:"task"`
	From         Status                 `json:"from"`
	To           Status                 `json:"to"`
	PartUpdates  []inventory.PartUpdate `json:"part_updates"`
	SkippedParts []string               `json:"skipped_parts,omitempty"`
}

func validParts(value interface{}) *internal.AppError {
	parts, _ := value.([]inventory.Consumption)
	for i, p := range parts {
		if strings.TrimSpace(p.PartID) == "" {
			return internal.NewValidationFieldError(fmt.Sprintf("parts[%d].part_id", i), "part_id is required", internal.ErrCodeValidationFailed)
		}
		if p.Quantity <= 0 {
			return internal.NewValidationFieldError(fmt.Sprintf("parts[%d].quantity", i), "quantity must be greater than 0", internal.ErrCodeInvalidQuantity)
		}
	}
	return nil
}

func cleanChecklist(items []ChecklistItem) []ChecklistItem {
	if items == nil {
		return nil
	}
	out := make([]ChecklistItem, 0, len(items))
	for _, item := range items {
		item.Label = strings.TrimSpace(item.Label)
		if item.Label != "" {
			out = append(out, item)
		}
	}
	return out
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
