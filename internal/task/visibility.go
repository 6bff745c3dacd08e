package task

import (
	"sort"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
)

// IsVisible: Admin sees everything, a Manager what they assigned or received,
// an Employee what they received. Anyone else sees nothing.
func IsVisible(p *auth.Principal, t *Task) bool {
	if p == nil || t == nil {
		return false
	}
	switch p.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleManager:
		return t.AssignedBy == p.ID || t.AssignedTo == p.ID
	case auth.RoleEmployee:
		return t.AssignedTo == p.ID
	}
	return false
}

// VisibleTasks keeps the tasks p may see, preserving order.
func VisibleTasks(all []*Task, p *auth.Principal) []*Task {
	out := make([]*Task, 0, len(all))
	for _, t := range all {
		if IsVisible(p, t) {
			out = append(out, t)
		}
	}
	return out
}

type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
	Overdue  int            `json:"overdue"`
}

// ComputeStats counts tasks by status. Callers pass the visible set, never the full collection.
func ComputeStats(tasks []*Task, now time.Time) Stats {
	stats := Stats{ByStatus: make(map[Status]int, len(allStatuses))}
	for _, s := range allStatuses {
		stats.ByStatus[s] = 0
	}
	for _, t := range tasks {
		stats.Total++
		stats.ByStatus[t.Status]++
		if t.DueDate != nil && !t.Status.Terminal() && t.DueDate.Before(now) {
			stats.Overdue++
		}
	}
	return stats
}

type HistoryFilter struct {
	Status        Status
	PlantCategory PlantCategory
}

// History returns the closed tasks, newest first. A task is dated by completed_at,
// falling back to updated_at and then created_at when unset.
func History(tasks []*Task, filter HistoryFilter) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Status.Terminal() {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.PlantCategory != "" && t.PlantCategory != filter.PlantCategory {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return historyTime(out[i]).After(historyTime(out[j]))
	})
	return out
}

func historyTime(t *Task) time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	if !t.UpdatedAt.IsZero() {
		return t.UpdatedAt
	}
	return t.CreatedAt
}
