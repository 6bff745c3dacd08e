package employee

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/core/common/validation"
)

const minPasswordLength = 8

type CreateEmployeeDTO struct {
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone,omitempty"`
	Password         string           `json:"password"`
	Role             auth.Role        `json:"role"`
	Department       string           `json:"department,omitempty"`
	Status           Status           `json:"status,omitempty"`
	HireDate         *time.Time       `json:"hire_date,omitempty"`
	Address          string           `json:"address,omitempty"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`
	Skills           []string         `json:"skills,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	Permissions      map[string]bool  `json:"permissions,omitempty"`
}

func (dto *CreateEmployeeDTO) Validate() error {
	dto.FirstName = strings.TrimSpace(dto.FirstName)
	dto.LastName = strings.TrimSpace(dto.LastName)
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	if dto.Status == "" {
		dto.Status = StatusActive
	}
	dto.Skills = cleanSkills(dto.Skills)

	v := validation.NewValidator()
	v.Field("first_name", dto.FirstName).Required().MaxLength(100)
	v.Field("last_name", dto.LastName).Required().MaxLength(100)
	v.Field("email", dto.Email).Required().Email()
	v.Field("password", dto.Password).Required().MinLength(minPasswordLength)
	v.Field("role", string(dto.Role)).Required().OneOf(auth.Roles()...)
	v.Field("status", string(dto.Status)).OneOf(Statuses()...)
	v.Field("permissions", dto.Permissions).Custom(knownPermissions)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateEmployeeDTO is a merge-style patch. Role and Permissions are privileged fields.
type UpdateEmployeeDTO struct {
	FirstName        *string           `json:"first_name,omitempty"`
	LastName         *string           `json:"last_name,omitempty"`
	Email            *string           `json:"email,omitempty"`
	Phone            *string           `json:"phone,omitempty"`
	Password         *string           `json:"password,omitempty"`
	Role             *auth.Role        `json:"role,omitempty"`
	Department       *string           `json:"department,omitempty"`
	Status           *Status           `json:"status,omitempty"`
	HireDate         *time.Time        `json:"hire_date,omitempty"`
	Address          *string           `json:"address,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergency_contact,omitempty"`
	Skills           []string          `json:"skills,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	Permissions      map[string]bool   `json:"permissions,omitempty"`
}

func (dto *UpdateEmployeeDTO) Validate() error {
	if dto.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*dto.Email))
		dto.Email = &email
	}

	v := validation.NewValidator()
	if dto.FirstName != nil {
		v.Field("first_name", strings.TrimSpace(*dto.FirstName)).Required().MaxLength(100)
	}
	if dto.LastName != nil {
		v.Field("last_name", strings.TrimSpace(*dto.LastName)).Required().MaxLength(100)
	}
	if dto.Email != nil {
		v.Field("email", *dto.Email).Required().Email()
	}
	if dto.Password != nil {
		v.Field("password", *dto.Password).Required().MinLength(minPasswordLength)
	}
	if dto.Role != nil {
		v.Field("role", string(*dto.Role)).Required().OneOf(auth.Roles()...)
	}
	if dto.Status != nil {
		v.Field("status", string(*dto.Status)).Required().OneOf(Statuses()...)
	}
	v.Field("permissions", dto.Permissions).Custom(knownPermissions)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto *UpdateEmployeeDTO) privileged() bool {
	return dto.Role != nil || dto.Permissions != nil
}

// Apply merges the non-privileged fields into e.
func (dto *UpdateEmployeeDTO) Apply(e *Employee) {
	setString(&e.FirstName, dto.FirstName)
	setString(&e.LastName, dto.LastName)
	setString(&e.Email, dto.Email)
	setString(&e.Phone, dto.Phone)
	setString(&e.Department, dto.Department)
	if dto.Status != nil {
		e.Status = *dto.Status
	}
	if dto.HireDate != nil {
		t := *dto.HireDate
		e.HireDate = &t
	}
	setString(&e.Address, dto.Address)
	if dto.EmergencyContact != nil {
		e.EmergencyContact = *dto.EmergencyContact
	}
	if dto.Skills != nil {
		e.Skills = cleanSkills(dto.Skills)
	}
	setString(&e.Notes, dto.Notes)
	e.FullName = FullName(e.FirstName, e.LastName)
}

// SelfUpdateDTO carries the fields an employee may change on their own record.
type SelfUpdateDTO struct {
	Phone            *string           `json:"phone,omitempty"`
	Address          *string           `json:"address,omitempty"`
	EmergencyContact *EmergencyContact `json:"emergency_contact,omitempty"`
	Skills           []string          `json:"skills,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
}

func (dto SelfUpdateDTO) Apply(e *Employee) {
	setString(&e.Phone, dto.Phone)
	setString(&e.Address, dto.Address)
	if dto.EmergencyContact != nil {
		e.EmergencyContact = *dto.EmergencyContact
	}
	if dto.Skills != nil {
		e.Skills = cleanSkills(dto.Skills)
	}
	setString(&e.Notes, dto.Notes)
}

type ListFilter struct {
	Search     string
	Role       auth.Role
	Status     Status
	Department string
	Limit      int
	Offset     int
}

type EmployeesResponse struct {
	Employees []*Employee `json:"employees"`
	Limit     int         `json:"limit"`
	Offset    int         `json:"offset"`
}

func knownPermissions(value interface{}) *internal.AppError {
	perms, _ := value.(map[string]bool)
	for name := range perms {
		if _, ok := auth.AllPermissions[name]; !ok {
			return internal.NewValidationFieldError("permissions", fmt.Sprintf("unknown permission %q", name), internal.ErrCodeInvalidEnum)
		}
	}
	return nil
}

func cleanSkills(skills []string) []string {
	if skills == nil {
		return nil
	}
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
