package postgres

import (
	"context"
	"errors"
	"strings"

	machineDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/machine"
	"github.com/frahmantamala/plant-maintenance/internal/machine"
	"gorm.io/gorm"
)

type MachineRepository struct {
	db *gorm.DB
}

func NewMachineRepository(db *gorm.DB) machine.RepositoryAPI {
	return &MachineRepository{db: db}
}

func (r *MachineRepository) List(ctx context.Context, filter machine.ListFilter) ([]*machineDatamodel.Machine, error) {
	var machines []*machineDatamodel.Machine

	q := r.db.WithContext(ctx).Model(&machineDatamodel.Machine{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(serial_number) LIKE ? OR LOWER(model) LIKE ?", pattern, pattern, pattern)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	err := q.Order("name ASC").Find(&machines).Error
	return machines, err
}

func (r *MachineRepository) GetByID(ctx context.Context, id string) (*machineDatamodel.Machine, error) {
	var m machineDatamodel.Machine
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, machine.ErrMachineNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MachineRepository) Create(ctx context.Context, m *machineDatamodel.Machine) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MachineRepository) Save(ctx context.Context, m *machineDatamodel.Machine) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MachineRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&machineDatamodel.Machine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return machine.ErrMachineNotFound
	}
	return nil
}
