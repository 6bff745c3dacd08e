package employee

import (
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	employeeDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/employee"
)

const Collection = "employees"

type Status string

const (
	StatusActive     Status = "Active"
	StatusInactive   Status = "Inactive"
	StatusOnLeave    Status = "OnLeave"
	StatusTerminated Status = "Terminated"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusOnLeave, StatusTerminated:
		return true
	}
	return false
}

func Statuses() []string {
	return []string{string(StatusActive), string(StatusInactive), string(StatusOnLeave), string(StatusTerminated)}
}

type EmergencyContact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Employee is both a person record and, through Principal, the authenticated identity.
type Employee struct {
	ID               string           `json:"id"`
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
	FullName         string           `json:"full_name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone,omitempty"`
	Role             auth.Role        `json:"role"`
	Department       string           `json:"department,omitempty"`
	Status           Status           `json:"status"`
	HireDate         *time.Time       `json:"hire_date,omitempty"`
	Address          string           `json:"address,omitempty"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`
	Skills           []string         `json:"skills"`
	Notes            string           `json:"notes,omitempty"`
	Permissions      map[string]bool  `json:"permissions"`
	PasswordHash     string           `json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

var (
	ErrEmployeeNotFound = internal.NewNotFoundError("employee not found", internal.ErrCodeEmployeeNotFound)
	ErrDuplicateEmail   = internal.NewConflictError("an employee with this email already exists", internal.ErrCodeDuplicateEmail)
	ErrSelfTermination  = internal.NewValidationError("you cannot terminate your own account", internal.ErrCodeValidationFailed)
)

func FullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

func (e *Employee) Principal() *auth.Principal {
	perms := make(map[string]bool, len(e.Permissions))
	for k, v := range e.Permissions {
		perms[k] = v
	}
	return &auth.Principal{
		ID:          e.ID,
		FullName:    e.FullName,
		Email:       e.Email,
		Role:        e.Role,
		Department:  e.Department,
		Status:      string(e.Status),
		Permissions: perms,
	}
}

// GrantedPermissions returns the names currently granted, sorted.
func (e *Employee) GrantedPermissions() []string {
	var out []string
	for name, granted := range e.Permissions {
		if granted {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func ToDataModel(e *Employee) *employeeDatamodel.Employee {
	row := &employeeDatamodel.Employee{
		ID:                    e.ID,
		FirstName:             e.FirstName,
		LastName:              e.LastName,
		Email:                 e.Email,
		Phone:                 e.Phone,
		PasswordHash:          e.PasswordHash,
		Role:                  string(e.Role),
		Department:            e.Department,
		Status:                string(e.Status),
		HireDate:              e.HireDate,
		Address:               e.Address,
		EmergencyContactName:  e.EmergencyContact.Name,
		EmergencyContactPhone: e.EmergencyContact.Phone,
		Skills:                e.Skills,
		Notes:                 e.Notes,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
	row.Permissions = PermissionRows(e.ID, e.Permissions, nil)
	return row
}

// PermissionRows flattens a permission map into rows, in name order.
func PermissionRows(employeeID string, perms map[string]bool, grantedBy *string) []employeeDatamodel.EmployeePermission {
	names := make([]string, 0, len(perms))
	for name := range perms {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]employeeDatamodel.EmployeePermission, 0, len(names))
	for _, name := range names {
		rows = append(rows, employeeDatamodel.EmployeePermission{
			EmployeeID:     employeeID,
			PermissionName: name,
			Granted:        perms[name],
			GrantedBy:      grantedBy,
		})
	}
	return rows
}

func FromDataModel(row *employeeDatamodel.Employee) *Employee {
	perms := make(map[string]bool, len(row.Permissions))
	for _, p := range row.Permissions {
		perms[p.PermissionName] = p.Granted
	}
	skills := row.Skills
	if skills == nil {
		skills = []string{}
	}
	contact := EmergencyContact{Name: row.EmergencyContactName, Phone: row.EmergencyContactPhone}
	return &Employee{
		ID:               row.ID,
		FirstName:        row.FirstName,
		LastName:         row.LastName,
		FullName:         FullName(row.FirstName, row.LastName),
		Email:            row.Email,
		Phone:            row.Phone,
		Role:             auth.Role(row.Role),
		Department:       row.Department,
		Status:           Status(row.Status),
		HireDate:         row.HireDate,
		Address:          row.Address,
		EmergencyContact: contact,
		Skills:           skills,
		Notes:            row.Notes,
		Permissions:      perms,
		PasswordHash:     row.PasswordHash,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*employeeDatamodel.Employee) []*Employee {
	result := make([]*Employee, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}
