package part

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	partDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/part"
	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/frahmantamala/plant-maintenance/internal/inventory"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter, lowStockThreshold int) ([]*partDatamodel.Part, error)
	GetByID(ctx context.Context, id string) (*partDatamodel.Part, error)
	Create(ctx context.Context, part *partDatamodel.Part) error
	Update(ctx context.Context, id string, changes map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo              RepositoryAPI
	publisher         events.Publisher
	lowStockThreshold int
	logger            *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, lowStockThreshold int, logger *slog.Logger) *Service {
	return &Service{
		repo:              repo,
		publisher:         publisher,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

func (s *Service) List(ctx context.Context, actor *auth.Principal, filter ListFilter) ([]*Part, error) {
	if !auth.CanViewParts(actor) {
		return nil, internal.ErrAuthorizationDenied
	}

	rows, err := s.repo.List(ctx, filter, s.lowStockThreshold)
	if err != nil {
		s.logger.Error("failed to list parts", "error", err)
		return nil, err
	}

	parts := FromDataModelSlice(rows)
	for _, p := range parts {
		p.LowStock = inventory.IsLow(p.Stock, s.lowStockThreshold)
	}
	return parts, nil
}

func (s *Service) GetByID(ctx context.Context, actor *auth.Principal, id string) (*Part, error) {
	if !auth.CanViewParts(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (*Part, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrPartNotFound) {
			s.logger.Error("failed to get part", "error", err, "part_id", id)
		}
		return nil, err
	}
	p := FromDataModel(row)
	p.LowStock = inventory.IsLow(p.Stock, s.lowStockThreshold)
	return p, nil
}

func (s *Service) Create(ctx context.Context, actor *auth.Principal, dto CreatePartDTO) (*Part, error) {
	if !auth.CanManageParts(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	p := &Part{
		ID:              uuid.NewString(),
		Name:            dto.Name,
		PartNumber:      dto.PartNumber,
		Stock:           dto.Stock,
		MachineID:       dto.MachineID,
		Unit:            dto.Unit,
		UnitCost:        dto.UnitCost,
		Supplier:        dto.Supplier,
		SupplierContact: dto.SupplierContact,
		Location:        dto.Location,
		Description:     dto.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, ToDataModel(p)); err != nil {
		s.logger.Error("failed to create part", "error", err, "name", dto.Name)
		return nil, internal.NewStoreError("part", err)
	}

	p.LowStock = inventory.IsLow(p.Stock, s.lowStockThreshold)
	s.logger.Info("part created", "part_id", p.ID, "stock", p.Stock, "actor_id", actor.ID)
	s.changed(ctx, p.ID, "create")
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Principal, id string, dto UpdatePartDTO) (*Part, error) {
	if !auth.CanManageParts(actor) {
		return nil, internal.ErrAuthorizationDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	changes := dto.Changes()
	if len(changes) > 0 {
		changes["updated_at"] = time.Now()
		if err := s.repo.Update(ctx, id, changes); err != nil {
			s.logger.Error("failed to update part", "error", err, "part_id", id)
			return nil, internal.NewStoreError("part", err)
		}
	}

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("part updated", "part_id", id, "fields", len(changes), "actor_id", actor.ID)
	s.changed(ctx, id, "update")
	if dto.Stock != nil && p.LowStock {
		s.publish(ctx, events.NewPartLowStockEvent(p.ID, p.Name, p.Stock, s.lowStockThreshold))
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	if !auth.CanManageParts(actor) {
		return internal.ErrAuthorizationDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrPartNotFound) {
			return err
		}
		s.logger.Error("failed to delete part", "error", err, "part_id", id)
		return internal.NewStoreError("part", err)
	}

	s.logger.Info("part deleted", "part_id", id, "actor_id", actor.ID)
	s.changed(ctx, id, "delete")
	return nil
}

func (s *Service) changed(ctx context.Context, id, op string) {
	s.publish(ctx, events.NewCollectionChangedEvent(Collection, id, op))
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}
