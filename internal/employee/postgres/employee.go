package postgres

import (
	"context"
	"errors"
	"strings"

	employeeDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/employee"
	"github.com/frahmantamala/plant-maintenance/internal/employee"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) employee.RepositoryAPI {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListFilter) ([]*employeeDatamodel.Employee, error) {
	var employees []*employeeDatamodel.Employee

	q := r.db.WithContext(ctx).Model(&employeeDatamodel.Employee{}).Preload("Permissions")
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", string(filter.Role))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	err := q.Order("last_name ASC, first_name ASC").Find(&employees).Error
	return employees, err
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*employeeDatamodel.Employee, error) {
	var e employeeDatamodel.Employee
	err := r.db.WithContext(ctx).Preload("Permissions").Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EmployeeRepository) GetByIDs(ctx context.Context, ids []string) ([]*employeeDatamodel.Employee, error) {
	var employees []*employeeDatamodel.Employee
	if len(ids) == 0 {
		return employees, nil
	}
	err := r.db.WithContext(ctx).
		Select("id", "first_name", "last_name", "role", "status").
		Where("id IN ?", ids).
		Find(&employees).Error
	return employees, err
}

func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*employeeDatamodel.Employee, error) {
	var e employeeDatamodel.Employee
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, e *employeeDatamodel.Employee) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EmployeeRepository) Save(ctx context.Context, e *employeeDatamodel.Employee) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Omit(clause.Associations).Save(e)
		if result.Error != nil {
			return result.Error
		}
		if e.Permissions == nil {
			return nil
		}

		if err := tx.Where("employee_id = ?", e.ID).Delete(&employeeDatamodel.EmployeePermission{}).Error; err != nil {
			return err
		}
		if len(e.Permissions) == 0 {
			return nil
		}
		return tx.Create(&e.Permissions).Error
	})
}

func (r *EmployeeRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	result := r.db.WithContext(ctx).Model(&employeeDatamodel.Employee{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}
