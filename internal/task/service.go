package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	taskDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/task"
	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/frahmantamala/plant-maintenance/internal/inventory"
	"github.com/frahmantamala/plant-maintenance/internal/metrics"
	"github.com/google/uuid"
)

const partsCollection = "parts"

// InventoryResult reports the stock writes made inside a completion transaction.
type InventoryResult struct {
	Updates   []inventory.PartUpdate
	Skipped   []string
	PartNames map[string]string
}

type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*taskDatamodel.Task, error)
	GetByID(ctx context.Context, id string) (*taskDatamodel.Task, error)
	Create(ctx context.Context, task *taskDatamodel.Task) error
	// Save writes the editable detail columns. Part lines are rewritten only when
	// replaceParts is set. Status and audit stamps are never touched.
	Save(ctx context.Context, task *taskDatamodel.Task, replaceParts bool) error
	SaveRating(ctx context.Context, id string, rating int, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	// SaveTransition writes the status change and, for a non-nil consumption list,
	// the matching stock decrements in one transaction.
	SaveTransition(ctx context.Context, task *taskDatamodel.Task, consumptions []inventory.Consumption) (*InventoryResult, error)
}

// Directory resolves employee ids to display names.
type Directory interface {
	Directory(ctx context.Context, ids []string) (map[string]string, error)
}

type Service struct {
	repo              RepositoryAPI
	directory         Directory
	publisher         events.Publisher
	lowStockThreshold int
	logger            *slog.Logger
	now               func() time.Time
}

func NewService(repo RepositoryAPI, directory Directory, publisher events.Publisher, lowStockThreshold int, logger *slog.Logger) *Service {
	return &Service{
		repo:              repo,
		directory:         directory,
		publisher:         publisher,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
		now:               time.Now,
	}
}

// scope narrows filter to the rows actor may see. False means nothing is visible.
func scope(actor *auth.Principal, filter ListFilter) (ListFilter, bool) {
	if actor == nil {
		return filter, false
	}
	switch actor.Role {
	case auth.RoleAdmin:
		filter.ParticipantID = ""
		filter.AssigneeOnly = false
	case auth.RoleManager:
		filter.ParticipantID = actor.ID
		filter.AssigneeOnly = false
	case auth.RoleEmployee:
		filter.ParticipantID = actor.ID
		filter.AssigneeOnly = true
	default:
		return filter, false
	}
	return filter, true
}

func (s *Service) List(ctx context.Context, actor *auth.Principal, filter ListFilter) ([]*Task, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	scoped, ok := scope(actor, filter)
	if !ok {
		return []*Task{}, nil
	}

	rows, err := s.repo.List(ctx, scoped)
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	tasks := VisibleTasks(FromDataModelSlice(rows), actor)
	s.resolveNames(ctx, tasks)
	return tasks, nil
}

// Stats counts the actor's visible tasks by status.
func (s *Service) Stats(ctx context.Context, actor *auth.Principal) (Stats, error) {
	tasks, err := s.List(ctx, actor, ListFilter{})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(tasks, s.now()), nil
}

func (s *Service) History(ctx context.Context, actor *auth.Principal, filter HistoryFilter) ([]*Task, error) {
	if filter.Status != "" && !filter.Status.Terminal() {
		return nil, internal.NewValidationFieldError("status", "history only holds Completed or Cancelled tasks", internal.ErrCodeInvalidEnum)
	}
	tasks, err := s.List(ctx, actor, ListFilter{PlantCategory: filter.PlantCategory})
	if err != nil {
		return nil, err
	}
	return History(tasks, filter), nil
}

func (s *Service) GetByID(ctx context.Context, actor *auth.Principal, id string) (*Task, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !IsVisible(actor, t) {
		return nil, internal.ErrAuthorizationDenied
	}
	s.resolveNames(ctx, []*Task{t})
	return t, nil
}

func (s *Service) load(ctx context.Context, id string) (*Task, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrTaskNotFound) {
			s.logger.Error("failed to get task", "error", err, "task_id", id)
		}
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, actor *auth.Principal, dto CreateTaskDTO) (*Task, error) {
	if !auth.CanManageTasks(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureEmployee(ctx, dto.AssignedTo); err != nil {
		return nil, err
	}

	now := s.now()
	t := &Task{
		ID:             uuid.NewString(),
		Name:           dto.Name,
		Description:    dto.Description,
		AssignedTo:     dto.AssignedTo,
		AssignedBy:     actor.ID,
		MachineID:      dto.MachineID,
		PlantCategory:  dto.PlantCategory,
		Status:         StatusPending,
		Priority:       dto.Priority,
		DueDate:        dto.DueDate,
		Parts:          dto.Parts,
		EstimatedHours: dto.EstimatedHours,
		EstimatedCost:  dto.EstimatedCost,
		Checklist:      dto.Checklist,
		Notes:          dto.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Parts == nil {
		t.Parts = []inventory.Consumption{}
	}
	if t.Checklist == nil {
		t.Checklist = []ChecklistItem{}
	}

	if err := s.repo.Create(ctx, ToDataModel(t)); err != nil {
		s.logger.Error("failed to create task", "error", err, "actor_id", actor.ID)
		return nil, internal.NewStoreError("task", err)
	}

	s.logger.Info("task created", "task_id", t.ID, "assigned_to", t.AssignedTo, "assigned_by", t.AssignedBy, "priority", t.Priority)
	s.publish(ctx, events.NewTaskAssignedEvent(t.ID, t.Name, t.AssignedTo, t.AssignedBy, string(t.Priority)))
	s.changed(ctx, Collection, t.ID, "create")

	s.resolveNames(ctx, []*Task{t})
	return t, nil
}

// Update edits task details. Only Admin or the assigning Manager may do so.
func (s *Service) Update(ctx context.Context, actor *auth.Principal, id string, dto UpdateTaskDTO) (*Task, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanApprove(actor, t) {
		return nil, internal.ErrAuthorizationDenied
	}
	if dto.Parts != nil && t.InventoryAppliedAt != nil {
		return nil, ErrPartsLocked
	}

	previousAssignee := t.AssignedTo
	dto.Apply(t)
	if t.AssignedTo != previousAssignee {
		if err := s.ensureEmployee(ctx, t.AssignedTo); err != nil {
			return nil, err
		}
	}
	t.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, ToDataModel(t), dto.Parts != nil); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update task", "error", err, "task_id", id)
		return nil, internal.NewStoreError("task", err)
	}

	s.logger.Info("task updated", "task_id", id, "actor_id", actor.ID)
	if t.AssignedTo != previousAssignee {
		s.publish(ctx, events.NewTaskAssignedEvent(t.ID, t.Name, t.AssignedTo, t.AssignedBy, string(t.Priority)))
	}
	s.changed(ctx, Collection, id, "update")

	s.resolveNames(ctx, []*Task{t})
	return t, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	if actor == nil {
		return auth.ErrProfileNotFound
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !CanApprove(actor, t) {
		return internal.ErrAuthorizationDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return err
		}
		s.logger.Error("failed to delete task", "error", err, "task_id", id)
		return internal.NewStoreError("task", err)
	}

	s.logger.Info("task deleted", "task_id", id, "actor_id", actor.ID)
	s.changed(ctx, Collection, id, "delete")
	return nil
}

// Options returns the statuses offered to actor. A task the actor has no part in is
// reported read-only rather than refused.
func (s *Service) Options(ctx context.Context, actor *auth.Principal, id string) (*TransitionOptions, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	targets := AllowedTargets(actor, t)
	return &TransitionOptions{
		TaskID:        t.ID,
		Current:       t.Status,
		Targets:       targets,
		CanTransition: len(targets) > 1,
	}, nil
}

// Transition applies a status change. On the first completion the consumed parts are
// decremented in the same transaction as the status write.
func (s *Service) Transition(ctx context.Context, actor *auth.Principal, id string, dto TransitionDTO) (*TransitionResult, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	tr, err := t.ApplyTransition(actor, dto.Status, s.now())
	if err != nil {
		s.logger.Warn("illegal transition rejected",
			"task_id", id, "actor_id", actor.ID, "role", actor.Role, "from", t.Status, "to", dto.Status)
		return nil, err
	}

	var consumptions []inventory.Consumption
	if tr.ApplyInventory {
		consumptions = t.Parts
		if consumptions == nil {
			consumptions = []inventory.Consumption{}
		}
	}

	inv, err := s.repo.SaveTransition(ctx, ToDataModel(t), consumptions)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, err
		}
		s.logger.Error("failed to save transition", "error", err, "task_id", id, "from", tr.From, "to", tr.To)
		return nil, internal.NewStoreError("task", err)
	}
	if inv == nil {
		inv = &InventoryResult{}
	}

	metrics.TaskTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
	s.logger.Info("task transitioned", "task_id", id, "actor_id", actor.ID, "from", tr.From, "to", tr.To)

	s.afterTransition(ctx, actor, t, tr, inv)

	s.resolveNames(ctx, []*Task{t})
	result := &TransitionResult{
		Task:         t,
		From:         tr.From,
		To:           tr.To,
		PartUpdates:  inv.Updates,
		SkippedParts: inv.Skipped,
	}
	if result.PartUpdates == nil {
		result.PartUpdates = []inventory.PartUpdate{}
	}
	return result, nil
}

func (s *Service) afterTransition(ctx context.Context, actor *auth.Principal, t *Task, tr Transition, inv *InventoryResult) {
	if len(inv.Skipped) > 0 {
		metrics.InventorySkippedParts.Add(float64(len(inv.Skipped)))
		s.logger.Warn("consumed parts not found, stock left untouched", "task_id", t.ID, "part_ids", inv.Skipped)
	}
	if len(inv.Updates) > 0 {
		metrics.InventoryAdjustments.Add(float64(len(inv.Updates)))
	}

	if tr.From != tr.To {
		s.publish(ctx, events.NewTaskStatusChangedEvent(t.ID, t.Name, string(tr.From), string(tr.To), actor.ID, t.AssignedTo, t.AssignedBy))
	}
	if tr.To == StatusCompleted && tr.From != StatusCompleted {
		s.publish(ctx, events.NewTaskCompletedEvent(t.ID, t.Name, actor.ID, t.AssignedTo, len(inv.Updates)))
	}

	for _, u := range inv.Updates {
		s.publish(ctx, events.NewPartStockAdjustedEvent(u.PartID, t.ID, u.PreviousStock, u.NewStock))
		if inventory.IsLow(u.NewStock, s.lowStockThreshold) && !inventory.IsLow(u.PreviousStock, s.lowStockThreshold) {
			s.publish(ctx, events.NewPartLowStockEvent(u.PartID, inv.PartNames[u.PartID], u.NewStock, s.lowStockThreshold))
		}
		s.changed(ctx, partsCollection, u.PartID, "update")
	}

	s.changed(ctx, Collection, t.ID, "update")
}

// Rate scores a completed task from 0 to 5. Only Admin or the assigning Manager may rate.
func (s *Service) Rate(ctx context.Context, actor *auth.Principal, id string, dto RatingDTO) (*Task, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanApprove(actor, t) {
		return nil, internal.ErrAuthorizationDenied
	}
	if t.Status != StatusCompleted {
		return nil, ErrRatingNotAllowed
	}

	rating := *dto.Rating
	t.Rating = &rating
	t.UpdatedAt = s.now()

	if err := s.repo.SaveRating(ctx, id, rating, t.UpdatedAt); err != nil {
		if errors.Is(err, ErrRatingNotAllowed) || errors.Is(err, ErrTaskNotFound) {
			return nil, err
		}
		s.logger.Error("failed to rate task", "error", err, "task_id", id)
		return nil, internal.NewStoreError("task", err)
	}

	s.logger.Info("task rated", "task_id", id, "rating", rating, "actor_id", actor.ID)
	s.changed(ctx, Collection, id, "update")

	s.resolveNames(ctx, []*Task{t})
	return t, nil
}

func (s *Service) ensureEmployee(ctx context.Context, id string) error {
	if s.directory == nil {
		return nil
	}
	names, err := s.directory.Directory(ctx, []string{id})
	if err != nil {
		return internal.NewStoreError("task", err)
	}
	if _, ok := names[id]; !ok {
		return internal.NewValidationFieldError("assigned_to", "assigned_to must reference an existing employee", internal.ErrCodeEmployeeNotFound)
	}
	return nil
}

// resolveNames fills display names. A failing directory only costs the names.
func (s *Service) resolveNames(ctx context.Context, tasks []*Task) {
	if s.directory == nil || len(tasks) == 0 {
		return
	}
	names, err := s.directory.Directory(ctx, Participants(tasks))
	if err != nil {
		s.logger.Warn("failed to resolve task participants", "error", err)
		return
	}
	Resolve(tasks, names)
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", "type", e.EventType(), "error", err)
	}
}

func (s *Service) changed(ctx context.Context, collection, id, op string) {
	s.publish(ctx, events.NewCollectionChangedEvent(collection, id, op))
}
