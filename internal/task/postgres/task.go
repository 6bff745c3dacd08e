package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	partDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/part"
	taskDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/task"
	"github.com/frahmantamala/plant-maintenance/internal/inventory"
	"github.com/frahmantamala/plant-maintenance/internal/task"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) task.RepositoryAPI {
	return &TaskRepository{db: db}
}

func orderedParts(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *TaskRepository) List(ctx context.Context, filter task.ListFilter) ([]*taskDatamodel.Task, error) {
	var tasks []*taskDatamodel.Task

	q := r.db.WithContext(ctx).Model(&taskDatamodel.Task{}).Preload("Parts", orderedParts)
	if filter.ParticipantID != "" {
		if filter.AssigneeOnly {
			q = q.Where("assigned_to = ?", filter.ParticipantID)
		} else {
			q = q.Where("(assigned_to = ? OR assigned_by = ?)", filter.ParticipantID, filter.ParticipantID)
		}
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.PlantCategory != "" {
		q = q.Where("plant_category = ?", string(filter.PlantCategory))
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", string(filter.Priority))
	}
	if filter.MachineID != "" {
		q = q.Where("machine_id = ?", filter.MachineID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	err := q.Order("created_at DESC").Order("id ASC").Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*taskDatamodel.Task, error) {
	var t taskDatamodel.Task
	err := r.db.WithContext(ctx).Preload("Parts", orderedParts).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, task.ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *taskDatamodel.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// detailColumns are the fields Update may edit. Lifecycle columns and the rating are
// written only by SaveTransition and SaveRating.
var detailColumns = []string{
	"name", "description", "assigned_to", "machine_id", "plant_category", "priority",
	"due_date", "estimated_hours", "estimated_cost", "checklist", "notes", "updated_at",
}

// lifecycleColumns are the fields a status change may write.
var lifecycleColumns = []string{
	"status", "completed_at", "completed_by", "approved_at", "approved_by",
	"inventory_applied_at", "updated_at",
}

func (r *TaskRepository) Save(ctx context.Context, t *taskDatamodel.Task, replaceParts bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateColumns(tx, t, detailColumns); err != nil {
			return err
		}
		if !replaceParts {
			return nil
		}
		return replaceTaskParts(tx, t)
	})
}

// SaveRating stores the rating only while the stored task is still Completed.
func (r *TaskRepository) SaveRating(ctx context.Context, id string, rating int, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&taskDatamodel.Task{}).
		Where("id = ? AND status = ?", id, string(task.StatusCompleted)).
		Updates(map[string]interface{}{"rating": rating, "updated_at": updatedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&taskDatamodel.Task{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return task.ErrTaskNotFound
		}
		return task.ErrRatingNotAllowed
	}
	return nil
}

func updateColumns(tx *gorm.DB, t *taskDatamodel.Task, columns []string) error {
	result := tx.Model(&taskDatamodel.Task{}).Where("id = ?", t.ID).
		Select(columns).UpdateColumns(t)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

func replaceTaskParts(tx *gorm.DB, t *taskDatamodel.Task) error {
	if err := tx.Where("task_id = ?", t.ID).Delete(&taskDatamodel.TaskPart{}).Error; err != nil {
		return err
	}
	if len(t.Parts) == 0 {
		return nil
	}
	for i := range t.Parts {
		t.Parts[i].ID = 0
		t.Parts[i].TaskID = t.ID
	}
	return tx.Create(&t.Parts).Error
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&taskDatamodel.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return task.ErrTaskNotFound
		}
		return tx.Where("task_id = ?", id).Delete(&taskDatamodel.TaskPart{}).Error
	})
}

// SaveTransition writes the lifecycle columns and any stock decrements in one transaction.
// The stored inventory_applied_at is re-read under lock and always wins once set, so a
// stale snapshot can neither clear it nor decrement stock a second time.
func (r *TaskRepository) SaveTransition(ctx context.Context, t *taskDatamodel.Task, consumptions []inventory.Consumption) (*task.InventoryResult, error) {
	result := &task.InventoryResult{PartNames: map[string]string{}}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored taskDatamodel.Task
		err := r.lock(tx).Select("id", "inventory_applied_at").Where("id = ?", t.ID).First(&stored).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return task.ErrTaskNotFound
			}
			return err
		}

		if stored.InventoryAppliedAt != nil {
			t.InventoryAppliedAt = stored.InventoryAppliedAt
			consumptions = nil
		}

		if err := updateColumns(tx, t, lifecycleColumns); err != nil {
			return err
		}
		if len(consumptions) == 0 {
			return nil
		}

		now := time.Now()
		if t.InventoryAppliedAt != nil {
			now = *t.InventoryAppliedAt
		}
		return r.applyInventory(tx, consumptions, now, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *TaskRepository) applyInventory(tx *gorm.DB, consumptions []inventory.Consumption, now time.Time, result *task.InventoryResult) error {
	var parts []*partDatamodel.Part
	err := r.lock(tx).Select("id", "name", "stock").Where("id IN ?", inventory.PartIDs(consumptions)).Find(&parts).Error
	if err != nil {
		return err
	}

	stock := make(map[string]int, len(parts))
	for _, p := range parts {
		stock[p.ID] = p.Stock
		result.PartNames[p.ID] = p.Name
	}

	result.Updates, result.Skipped = inventory.ApplyCompletion(consumptions, stock, now)
	for _, u := range result.Updates {
		err := tx.Model(&partDatamodel.Part{}).
			Where("id = ?", u.PartID).
			Updates(map[string]interface{}{"stock": u.NewStock, "updated_at": u.UpdatedAt}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// lock adds FOR UPDATE where the dialect supports it. SQLite serialises writers already.
func (r *TaskRepository) lock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
