package machine

import (
	"strings"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/core/common/validation"
)

type CreateMachineDTO struct {
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	Status              Status     `json:"status"`
	Location            string     `json:"location"`
	Manufacturer        string     `json:"manufacturer,omitempty"`
	Model               string     `json:"model,omitempty"`
	SerialNumber        string     `json:"serial_number,omitempty"`
	Capacity            string     `json:"capacity,omitempty"`
	Power               string     `json:"power,omitempty"`
	InstallationDate    *time.Time `json:"installation_date,omitempty"`
	WarrantyExpiry      *time.Time `json:"warranty_expiry,omitempty"`
	LastMaintenance     *time.Time `json:"last_maintenance,omitempty"`
	NextMaintenance     *time.Time `json:"next_maintenance,omitempty"`
	MaintenanceInterval int        `json:"maintenance_interval_days,omitempty"`
	MaintenanceNotes    string     `json:"maintenance_notes,omitempty"`
	OperatingHours      float64    `json:"operating_hours,omitempty"`
	Efficiency          float64    `json:"efficiency,omitempty"`
	Supplier            string     `json:"supplier,omitempty"`
	SupplierContact     string     `json:"supplier_contact,omitempty"`
	SupportPhone        string     `json:"support_phone,omitempty"`
	SupportEmail        string     `json:"support_email,omitempty"`
	Description         string     `json:"description,omitempty"`
	Notes               string     `json:"notes,omitempty"`
}

func (dto *CreateMachineDTO) Validate() error {
	dto.Name = strings.TrimSpace(dto.Name)
	if dto.Status == "" {
		dto.Status = StatusOperational
	}

	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("type", dto.Type).Required()
	v.Field("location", dto.Location).Required()
	v.Field("status", string(dto.Status)).OneOf(Statuses()...)
	v.Field("support_email", dto.SupportEmail).Email()
	v.Field("maintenance_interval_days", dto.MaintenanceInterval).MinInt(0, internal.ErrCodeValidationFailed)
	v.Field("efficiency", dto.Efficiency).MinFloat(0)
	v.Field("operating_hours", dto.OperatingHours).MinFloat(0)
	if dto.InstallationDate != nil {
		v.Field("warranty_expiry", dto.WarrantyExpiry).NotBefore(*dto.InstallationDate, "installation_date")
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateMachineDTO is a merge-style patch: nil fields are left untouched.
type UpdateMachineDTO struct {
	Name                *string    `json:"name,omitempty"`
	Type                *string    `json:"type,omitempty"`
	Status              *Status    `json:"status,omitempty"`
	Location            *string    `json:"location,omitempty"`
	Manufacturer        *string    `json:"manufacturer,omitempty"`
	Model               *string    `json:"model,omitempty"`
	SerialNumber        *string    `json:"serial_number,omitempty"`
	Capacity            *string    `json:"capacity,omitempty"`
	Power               *string    `json:"power,omitempty"`
	InstallationDate    *time.Time `json:"installation_date,omitempty"`
	WarrantyExpiry      *time.Time `json:"warranty_expiry,omitempty"`
	LastMaintenance     *time.Time `json:"last_maintenance,omitempty"`
	NextMaintenance     *time.Time `json:"next_maintenance,omitempty"`
	MaintenanceInterval *int       `json:"maintenance_interval_days,omitempty"`
	MaintenanceNotes    *string    `json:"maintenance_notes,omitempty"`
	OperatingHours      *float64   `json:"operating_hours,omitempty"`
	Efficiency          *float64   `json:"efficiency,omitempty"`
	Supplier            *string    `json:"supplier,omitempty"`
	SupplierContact     *string    `json:"supplier_contact,omitempty"`
	SupportPhone        *string    `json:"support_phone,omitempty"`
	SupportEmail        *string    `json:"support_email,omitempty"`
	Description         *string    `json:"description,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
}

func (dto *UpdateMachineDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", strings.TrimSpace(*dto.Name)).Required().MaxLength(200)
	}
	if dto.Status != nil {
		v.Field("status", string(*dto.Status)).Required().OneOf(Statuses()...)
	}
	if dto.SupportEmail != nil {
		v.Field("support_email", *dto.SupportEmail).Email()
	}
	if dto.MaintenanceInterval != nil {
		v.Field("maintenance_interval_days", *dto.MaintenanceInterval).MinInt(0, internal.ErrCodeValidationFailed)
	}
	if dto.Efficiency != nil {
		v.Field("efficiency", *dto.Efficiency).MinFloat(0)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Apply merges the patch into m.
func (dto *UpdateMachineDTO) Apply(m *Machine) {
	setString(&m.Name, dto.Name)
	setString(&m.Type, dto.Type)
	if dto.Status != nil {
		m.Status = *dto.Status
	}
	setString(&m.Location, dto.Location)
	setString(&m.Manufacturer, dto.Manufacturer)
	setString(&m.Model, dto.Model)
	setString(&m.SerialNumber, dto.SerialNumber)
	setString(&m.Capacity, dto.Capacity)
	setString(&m.Power, dto.Power)
	setTime(&m.InstallationDate, dto.InstallationDate)
	setTime(&m.WarrantyExpiry, dto.WarrantyExpiry)
	setTime(&m.LastMaintenance, dto.LastMaintenance)
	setTime(&m.NextMaintenance, dto.NextMaintenance)
	if dto.MaintenanceInterval != nil {
		m.MaintenanceInterval = *dto.MaintenanceInterval
	}
	setString(&m.MaintenanceNotes, dto.MaintenanceNotes)
	if dto.OperatingHours != nil {
		m.OperatingHours = *dto.OperatingHours
	}
	if dto.Efficiency != nil {
		m.Efficiency = *dto.Efficiency
	}
	setString(&m.Supplier, dto.Supplier)
	setString(&m.SupplierContact, dto.SupplierContact)
	setString(&m.SupportPhone, dto.SupportPhone)
	setString(&m.SupportEmail, dto.SupportEmail)
	setString(&m.Description, dto.Description)
	setString(&m.Notes, dto.Notes)

	// a new last-maintenance date without an explicit next date reschedules
	if dto.LastMaintenance != nil && dto.NextMaintenance == nil {
		m.ScheduleNext()
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setTime(dst **time.Time, v *time.Time) {
	if v != nil {
		t := *v
		*dst = &t
	}
}

type ListFilter struct {
	Search   string
	Status   Status
	Location string
	Limit    int
	Offset   int
}

type MachinesResponse struct {
	Machines []*Machine `json:"machines"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}
