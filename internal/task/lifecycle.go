package task

import (
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
)

// relation is how an actor stands toward a task.
type relation int

const (
	relationNone relation = iota
	relationAdmin
	relationAssigner
	relationAssignee
)

func relationOf(actor *auth.Principal, t *Task) relation {
	if actor == nil || t == nil {
		return relationNone
	}
	switch actor.Role {
	case auth.RoleAdmin:
		return relationAdmin
	case auth.RoleManager:
		if t.AssignedBy == actor.ID {
			return relationAssigner
		}
	case auth.RoleEmployee:
		if t.AssignedTo == actor.ID {
			return relationAssignee
		}
	}
	return relationNone
}

// AllowedTargets lists the statuses offered to actor for t, current status included.
// A single-entry result means the task is read-only for this actor.
func AllowedTargets(actor *auth.Principal, t *Task) []Status {
	current := t.Status

	switch relationOf(actor, t) {
	case relationAdmin:
		return append([]Status(nil), allStatuses...)

	case relationAssigner:
		switch current {
		case StatusPending, StatusInProgress, StatusCancelled:
			return append([]Status(nil), allStatuses...)
		case StatusReadyForReview:
			return []Status{StatusReadyForReview, StatusCompleted, StatusInProgress}
		}

	case relationAssignee:
		switch current {
		case StatusPending:
			return []Status{StatusPending, StatusInProgress}
		case StatusInProgress:
			return []Status{StatusInProgress, StatusReadyForReview}
		}
	}

	return []Status{current}
}

// CanTransition reports whether actor may set t to target.
func CanTransition(actor *auth.Principal, t *Task, target Status) bool {
	if !target.Valid() {
		return false
	}
	offered := AllowedTargets(actor, t)
	if len(offered) < 2 {
		return false
	}
	for _, s := range offered {
		if s == target {
			return true
		}
	}
	return false
}

// CanApprove is the approval gate for Completed, and for rating a completed task.
func CanApprove(actor *auth.Principal, t *Task) bool {
	r := relationOf(actor, t)
	return r == relationAdmin || r == relationAssigner
}

// Transition describes what ApplyTransition did.
type Transition struct {
	From Status
	To   Status
	// ApplyInventory is set on the one completion that must decrement stock.
	ApplyInventory bool
}

// ApplyTransition moves t to target on behalf of actor and stamps the audit fields.
// Nothing is changed when the transition is illegal.
func (t *Task) ApplyTransition(actor *auth.Principal, target Status, now time.Time) (Transition, error) {
	if !CanTransition(actor, t, target) {
		return Transition{}, ErrIllegalTransition
	}
	if target == StatusCompleted && !CanApprove(actor, t) {
		return Transition{}, ErrIllegalTransition
	}

	tr := Transition{From: t.Status, To: target}
	actorID := actor.ID

	t.Status = target
	t.UpdatedAt = now

	switch {
	case target == StatusReadyForReview && tr.From != StatusReadyForReview:
		t.CompletedBy = &actorID
		t.CompletedAt = timePtr(now)

	case target == StatusCompleted && tr.From != StatusCompleted:
		t.ApprovedBy = &actorID
		t.ApprovedAt = timePtr(now)
		if t.CompletedAt == nil {
			t.CompletedAt = timePtr(now)
		}
		if t.CompletedBy == nil {
			t.CompletedBy = &actorID
		}
		if t.InventoryAppliedAt == nil {
			t.InventoryAppliedAt = timePtr(now)
			tr.ApplyInventory = true
		}
	}

	return tr, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
