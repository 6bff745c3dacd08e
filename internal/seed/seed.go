// Package seed loads demo fixtures into the database.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	employeeDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/employee"
	machineDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/machine"
	partDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/part"
	taskDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/task"
	"github.com/frahmantamala/plant-maintenance/internal/employee"
	"github.com/frahmantamala/plant-maintenance/internal/machine"
	"github.com/frahmantamala/plant-maintenance/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EmployeeFixture struct {
	Email       string   `yaml:"email"`
	Password    string   `yaml:"password"`
	FirstName   string   `yaml:"first_name"`
	LastName    string   `yaml:"last_name"`
	Role        string   `yaml:"role"`
	Department  string   `yaml:"department"`
	Permissions []string `yaml:"permissions"`
}

type MachineFixture struct {
	ID              string     `yaml:"id"`
	Name            string     `yaml:"name"`
	Type            string     `yaml:"type"`
	Status          string     `yaml:"status"`
	Location        string     `yaml:"location"`
	LastMaintenance *time.Time `yaml:"last_maintenance"`
}

type PartFixture struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Stock     *int    `yaml:"stock"`
	MachineID *string `yaml:"machine_id"`

	// legacy names, folded into Stock by Parse
	InStock      *int `yaml:"inStock"`
	InStockSnake *int `yaml:"in_stock"`
}

// StockValue is the canonical stock level, zero when none was given.
func (p PartFixture) StockValue() int {
	if p.Stock == nil {
		return 0
	}
	return *p.Stock
}

// migrateStock moves a legacy inStock/in_stock value onto Stock. Conflicting values
// are an error.
func (p *PartFixture) migrateStock() (bool, error) {
	legacy := p.InStock
	if p.InStockSnake != nil {
		if legacy != nil && *legacy != *p.InStockSnake {
			return false, fmt.Errorf("inStock %d and in_stock %d disagree", *legacy, *p.InStockSnake)
		}
		legacy = p.InStockSnake
	}
	if legacy == nil {
		return false, nil
	}
	if p.Stock != nil && *p.Stock != *legacy {
		return false, fmt.Errorf("stock %d and legacy stock %d disagree", *p.Stock, *legacy)
	}
	v := *legacy
	p.Stock = &v
	p.InStock, p.InStockSnake = nil, nil
	return true, nil
}

type Fixtures struct {
	Employees []EmployeeFixture `yaml:"employees"`
	Machines  []MachineFixture  `yaml:"machines"`
	Parts     []PartFixture     `yaml:"parts"`
}

type Summary struct {
	Employees int
	Machines  int
	Parts     int
}

// Parse decodes and checks a fixture document. Unknown keys are errors; legacy stock
// keys are migrated to stock.
func Parse(data []byte) (*Fixtures, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixtures
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	var errs []error
	for i := range f.Parts {
		migrated, err := f.Parts[i].migrateStock()
		if err != nil {
			errs = append(errs, fmt.Errorf("parts[%d]: %w", i, err))
			continue
		}
		if migrated {
			logger.LoggerWrapper().Warn("migrated legacy stock key, use stock instead",
				"part_id", f.Parts[i].ID, "stock", *f.Parts[i].Stock)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixtures) Validate() error {
	var errs []error
	for i, e := range f.Employees {
		if e.Email == "" || e.Password == "" {
			errs = append(errs, fmt.Errorf("employees[%d]: email and password are required", i))
		}
		if _, err := auth.ParseRole(e.Role); err != nil {
			errs = append(errs, fmt.Errorf("employees[%d]: %w", i, err))
		}
		for _, p := range e.Permissions {
			if _, ok := auth.AllPermissions[p]; !ok {
				errs = append(errs, fmt.Errorf("employees[%d]: unknown permission %q", i, p))
			}
		}
	}
	for i, m := range f.Machines {
		if m.ID == "" || m.Name == "" {
			errs = append(errs, fmt.Errorf("machines[%d]: id and name are required", i))
		}
		if m.Status != "" && !machine.Status(m.Status).Valid() {
			errs = append(errs, fmt.Errorf("machines[%d]: unknown status %q", i, m.Status))
		}
	}
	for i, p := range f.Parts {
		if p.InStock != nil || p.InStockSnake != nil {
			errs = append(errs, fmt.Errorf("parts[%d]: legacy stock key was not migrated", i))
		}
		if p.ID == "" || p.Name == "" {
			errs = append(errs, fmt.Errorf("parts[%d]: id and name are required", i))
		}
		if p.StockValue() < 0 {
			errs = append(errs, fmt.Errorf("parts[%d]: stock cannot be negative", i))
		}
	}
	return errors.Join(errs...)
}

type Seeder struct {
	db         *gorm.DB
	bcryptCost int
	logger     *slog.Logger
}

func NewSeeder(db *gorm.DB, bcryptCost int, logger *slog.Logger) *Seeder {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Seeder{db: db, bcryptCost: bcryptCost, logger: logger}
}

// Apply inserts fixtures that are not present yet, matching employees by email and
// machines and parts by id. With clear set, existing domain rows are removed first.
func (s *Seeder) Apply(ctx context.Context, f *Fixtures, clear bool) (Summary, error) {
	var sum Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := s.clear(tx); err != nil {
				return err
			}
		}
		if err := s.seedPermissions(tx); err != nil {
			return err
		}

		for _, e := range f.Employees {
			created, err := s.seedEmployee(tx, e)
			if err != nil {
				return fmt.Errorf("employee %s: %w", e.Email, err)
			}
			if created {
				sum.Employees++
			}
		}
		for _, m := range f.Machines {
			status := m.Status
			if status == "" {
				status = string(machine.StatusOperational)
			}
			row := machineDatamodel.Machine{
				ID: m.ID, Name: m.Name, Type: m.Type, Status: status,
				Location: m.Location, LastMaintenance: m.LastMaintenance,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("machine %s: %w", m.ID, res.Error)
			}
			sum.Machines += int(res.RowsAffected)
		}
		for _, p := range f.Parts {
			row := partDatamodel.Part{ID: p.ID, Name: p.Name, Stock: p.StockValue(), MachineID: p.MachineID}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("part %s: %w", p.ID, res.Error)
			}
			sum.Parts += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	s.logger.Info("fixtures applied",
		"employees", sum.Employees,
		"machines", sum.Machines,
		"parts", sum.Parts,
		"cleared", clear)
	return sum, nil
}

func (s *Seeder) clear(tx *gorm.DB) error {
	// children first
	for _, model := range []interface{}{
		&taskDatamodel.TaskPart{},
		&taskDatamodel.Task{},
		&partDatamodel.Part{},
		&machineDatamodel.Machine{},
		&employeeDatamodel.EmployeePermission{},
		&employeeDatamodel.Employee{},
	} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

func (s *Seeder) seedPermissions(tx *gorm.DB) error {
	rows := make([]employeeDatamodel.Permission, 0, len(auth.AllPermissions))
	for name, desc := range auth.AllPermissions {
		rows = append(rows, employeeDatamodel.Permission{Name: name, Description: desc})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (s *Seeder) seedEmployee(tx *gorm.DB, e EmployeeFixture) (bool, error) {
	var count int64
	if err := tx.Model(&employeeDatamodel.Employee{}).
		Where("LOWER(email) = ?", strings.ToLower(e.Email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(e.Password), s.bcryptCost)
	if err != nil {
		return false, err
	}

	perms := make(map[string]bool, len(e.Permissions))
	for _, p := range e.Permissions {
		perms[p] = true
	}
	emp := &employee.Employee{
		ID:           uuid.NewString(),
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		Email:        strings.ToLower(e.Email),
		Role:         auth.Role(e.Role),
		Department:   e.Department,
		Status:       employee.StatusActive,
		Skills:       []string{},
		Permissions:  perms,
		PasswordHash: string(hash),
	}
	return true, tx.Create(employee.ToDataModel(emp)).Error
}
