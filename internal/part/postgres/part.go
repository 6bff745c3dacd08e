package postgres

import (
	"context"
	"errors"
	"strings"

	partDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/part"
	"github.com/frahmantamala/plant-maintenance/internal/part"
	"gorm.io/gorm"
)

type PartRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) part.RepositoryAPI {
	return &PartRepository{db: db}
}

func (r *PartRepository) List(ctx context.Context, filter part.ListFilter, lowStockThreshold int) ([]*partDatamodel.Part, error) {
	var parts []*partDatamodel.Part

	q := r.db.WithContext(ctx).Model(&partDatamodel.Part{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(part_number) LIKE ?", pattern, pattern)
	}
	if filter.MachineID != "" {
		q = q.Where("machine_id = ?", filter.MachineID)
	}
	if filter.LowStock {
		q = q.Where("stock <= ?", lowStockThreshold)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	err := q.Order("name ASC").Find(&parts).Error
	return parts, err
}

func (r *PartRepository) GetByID(ctx context.Context, id string) (*partDatamodel.Part, error) {
	var p partDatamodel.Part
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, part.ErrPartNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PartRepository) Create(ctx context.Context, p *partDatamodel.Part) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update applies a partial column update.
func (r *PartRepository) Update(ctx context.Context, id string, changes map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&partDatamodel.Part{}).
		Where("id = ?", id).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return part.ErrPartNotFound
	}
	return nil
}

func (r *PartRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&partDatamodel.Part{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return part.ErrPartNotFound
	}
	return nil
}
