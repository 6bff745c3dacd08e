package task

import "time"

type ChecklistItem struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

type Task struct {
	ID                 string          `gorm:"primaryKey;type:varchar(36)"`
	Name               string          `gorm:"column:name;not null"`
	Description        string          `gorm:"column:description"`
	AssignedTo         string          `gorm:"column:assigned_to;type:varchar(36);index;not null"`
	AssignedBy         string          `gorm:"column:assigned_by;type:varchar(36);index;not null"`
	MachineID          *string         `gorm:"column:machine_id;type:varchar(36);index"`
	PlantCategory      string          `gorm:"column:plant_category"`
	Status             string          `gorm:"column:status;index;not null"`
	Priority           string          `gorm:"column:priority;not null"`
	DueDate            *time.Time      `gorm:"column:due_date"`
	Rating             *int            `gorm:"column:rating"`
	Parts              []TaskPart      `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	EstimatedHours     float64         `gorm:"column:estimated_hours"`
	EstimatedCost      float64         `gorm:"column:estimated_cost"`
	Checklist          []ChecklistItem `gorm:"column:checklist;serializer:json"`
	Notes              string          `gorm:"column:notes"`
	CompletedAt        *time.Time      `gorm:"column:completed_at"`
	CompletedBy        *string         `gorm:"column:completed_by;type:varchar(36)"`
	ApprovedAt         *time.Time      `gorm:"column:approved_at"`
	ApprovedBy         *string         `gorm:"column:approved_by;type:varchar(36)"`
	InventoryAppliedAt *time.Time      `gorm:"column:inventory_applied_at"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskPart is one consumption line. A task may list the same part more than once.
type TaskPart struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	TaskID   string `gorm:"column:task_id;type:varchar(36);index;not null"`
	PartID   string `gorm:"column:part_id;type:varchar(36);not null"`
	Quantity int    `gorm:"column:quantity;not null"`
	Position int    `gorm:"column:position;not null"`
}

func (TaskPart) TableName() string {
	return "task_parts"
}
