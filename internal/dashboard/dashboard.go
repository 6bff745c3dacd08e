package dashboard

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/task"
)

type LowStockPart struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Stock int    `json:"stock" db:"stock"`
}

type SystemTotals struct {
	EmployeesByRole   map[string]int `json:"employees_by_role"`
	MachinesByStatus  map[string]int `json:"machines_by_status"`
	PartCount         int            `json:"part_count"`
	LowStockThreshold int            `json:"low_stock_threshold"`
	LowStockParts     []LowStockPart `json:"low_stock_parts"`
}

type Dashboard struct {
	Role   auth.Role     `json:"role"`
	Tasks  task.Stats    `json:"tasks"`
	System *SystemTotals `json:"system,omitempty"`
}

type RepositoryAPI interface {
	EmployeesByRole(ctx context.Context) (map[string]int, error)
	MachinesByStatus(ctx context.Context) (map[string]int, error)
	PartCount(ctx context.Context) (int, error)
	LowStockParts(ctx context.Context, threshold int) ([]LowStockPart, error)
}

// TaskStats is the slice of the task service the dashboard reads.
type TaskStats interface {
	Stats(ctx context.Context, actor *auth.Principal) (task.Stats, error)
}

type Service struct {
	repo              RepositoryAPI
	tasks             TaskStats
	lowStockThreshold int
	logger            *slog.Logger
}

func NewService(repo RepositoryAPI, tasks TaskStats, lowStockThreshold int, logger *slog.Logger) *Service {
	return &Service{
		repo:              repo,
		tasks:             tasks,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

// Get returns task counts over the actor's visible tasks. Admins also get plant-wide totals.
func (s *Service) Get(ctx context.Context, actor *auth.Principal) (*Dashboard, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}

	stats, err := s.tasks.Stats(ctx, actor)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Role: actor.Role, Tasks: stats}
	if !actor.IsAdmin() {
		return d, nil
	}

	system, err := s.systemTotals(ctx)
	if err != nil {
		s.logger.Error("failed to load system totals", "error", err)
		return nil, err
	}
	d.System = system
	return d, nil
}

func (s *Service) systemTotals(ctx context.Context) (*SystemTotals, error) {
	employees, err := s.repo.EmployeesByRole(ctx)
	if err != nil {
		return nil, err
	}
	machines, err := s.repo.MachinesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	parts, err := s.repo.PartCount(ctx)
	if err != nil {
		return nil, err
	}
	low, err := s.repo.LowStockParts(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, err
	}
	if low == nil {
		low = []LowStockPart{}
	}

	return &SystemTotals{
		EmployeesByRole:   employees,
		MachinesByStatus:  machines,
		PartCount:         parts,
		LowStockThreshold: s.lowStockThreshold,
		LowStockParts:     low,
	}, nil
}
