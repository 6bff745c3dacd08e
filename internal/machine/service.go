package machine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	machineDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/machine"
	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*machineDatamodel.Machine, error)
	GetByID(ctx context.Context, id string) (*machineDatamodel.Machine, error)
	Create(ctx context.Context, machine *machineDatamodel.Machine) error
	Save(ctx context.Context, machine *machineDatamodel.Machine) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// List is open to every authenticated principal.
func (s *Service) List(ctx context.Context, actor *auth.Principal, filter ListFilter) ([]*Machine, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, internal.NewValidationFieldError("status", "unknown machine status", internal.ErrCodeInvalidEnum)
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list machines", "error", err)
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) GetByID(ctx context.Context, actor *auth.Principal, id string) (*Machine, error) {
	if actor == nil {
		return nil, auth.ErrProfileNotFound
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrMachineNotFound) {
			s.logger.Error("failed to get machine", "error", err, "machine_id", id)
		}
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, actor *auth.Principal, dto CreateMachineDTO) (*Machine, error) {
	if !auth.CanManageMachines(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	m := &Machine{
		ID:                  uuid.NewString(),
		Name:                dto.Name,
		Type:                dto.Type,
		Status:              dto.Status,
		Location:            dto.Location,
		Manufacturer:        dto.Manufacturer,
		Model:               dto.Model,
		SerialNumber:        dto.SerialNumber,
		Capacity:            dto.Capacity,
		Power:               dto.Power,
		InstallationDate:    dto.InstallationDate,
		WarrantyExpiry:      dto.WarrantyExpiry,
		LastMaintenance:     dto.LastMaintenance,
		NextMaintenance:     dto.NextMaintenance,
		MaintenanceInterval: dto.MaintenanceInterval,
		MaintenanceNotes:    dto.MaintenanceNotes,
		OperatingHours:      dto.OperatingHours,
		Efficiency:          dto.Efficiency,
		Supplier:            dto.Supplier,
		SupplierContact:     dto.SupplierContact,
		SupportPhone:        dto.SupportPhone,
		SupportEmail:        dto.SupportEmail,
		Description:         dto.Description,
		Notes:               dto.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if m.NextMaintenance == nil {
		m.ScheduleNext()
	}

	if err := s.repo.Create(ctx, ToDataModel(m)); err != nil {
		s.logger.Error("failed to create machine", "error", err, "name", dto.Name)
		return nil, internal.NewStoreError("machine", err)
	}

	s.logger.Info("machine created", "machine_id", m.ID, "status", m.Status, "actor_id", actor.ID)
	s.changed(ctx, m.ID, "create")
	return m, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Principal, id string, dto UpdateMachineDTO) (*Machine, error) {
	if !auth.CanManageMachines(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	m, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	previous := m.Status
	dto.Apply(m)
	m.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, ToDataModel(m)); err != nil {
		s.logger.Error("failed to update machine", "error", err, "machine_id", id)
		return nil, internal.NewStoreError("machine", err)
	}

	s.logger.Info("machine updated", "machine_id", id, "from_status", previous, "status", m.Status, "actor_id", actor.ID)
	s.changed(ctx, id, "update")
	return m, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	if !auth.CanManageMachines(actor) {
		return internal.ErrAuthorizationDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrMachineNotFound) {
			return err
		}
		s.logger.Error("failed to delete machine", "error", err, "machine_id", id)
		return internal.NewStoreError("machine", err)
	}

	s.logger.Info("machine deleted", "machine_id", id, "actor_id", actor.ID)
	s.changed(ctx, id, "delete")
	return nil
}

func (s *Service) changed(ctx context.Context, id, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewCollectionChangedEvent(Collection, id, op)); err != nil {
		s.logger.Warn("failed to publish event", "collection", Collection, "error", err)
	}
}
