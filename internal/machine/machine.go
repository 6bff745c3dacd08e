package machine

import (
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	machineDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/machine"
)

const Collection = "machines"

type Status string

const (
	StatusOperational      Status = "Operational"
	StatusNeedsMaintenance Status = "NeedsMaintenance"
	StatusUnderMaintenance Status = "UnderMaintenance"
	StatusOffline          Status = "Offline"
	StatusRepair           Status = "Repair"
	StatusRetired          Status = "Retired"
)

var statuses = []Status{
	StatusOperational,
	StatusNeedsMaintenance,
	StatusUnderMaintenance,
	StatusOffline,
	StatusRepair,
	StatusRetired,
}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

func Statuses() []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

type Machine struct {
	ID                  string     `json:"id"`
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
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

var (
	ErrMachineNotFound = internal.NewNotFoundError("machine not found", internal.ErrCodeMachineNotFound)
)

// MaintenanceDue reports whether the next scheduled maintenance has been reached.
func (m *Machine) MaintenanceDue(now time.Time) bool {
	return m.NextMaintenance != nil && !now.Before(*m.NextMaintenance)
}

// ScheduleNext derives the next maintenance date from the last one and the interval.
func (m *Machine) ScheduleNext() {
	if m.LastMaintenance == nil || m.MaintenanceInterval <= 0 {
		return
	}
	next := m.LastMaintenance.AddDate(0, 0, m.MaintenanceInterval)
	m.NextMaintenance = &next
}

func ToDataModel(m *Machine) *machineDatamodel.Machine {
	return &machineDatamodel.Machine{
		ID:                  m.ID,
		Name:                m.Name,
		Type:                m.Type,
		Status:              string(m.Status),
		Location:            m.Location,
		Manufacturer:        m.Manufacturer,
		Model:               m.Model,
		SerialNumber:        m.SerialNumber,
		Capacity:            m.Capacity,
		Power:               m.Power,
		InstallationDate:    m.InstallationDate,
		WarrantyExpiry:      m.WarrantyExpiry,
		LastMaintenance:     m.LastMaintenance,
		NextMaintenance:     m.NextMaintenance,
		MaintenanceInterval: m.MaintenanceInterval,
		MaintenanceNotes:    m.MaintenanceNotes,
		OperatingHours:      m.OperatingHours,
		Efficiency:          m.Efficiency,
		Supplier:            m.Supplier,
		SupplierContact:     m.SupplierContact,
		SupportPhone:        m.SupportPhone,
		SupportEmail:        m.SupportEmail,
		Description:         m.Description,
		Notes:               m.Notes,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func FromDataModel(m *machineDatamodel.Machine) *Machine {
	return &Machine{
		ID:                  m.ID,
		Name:                m.Name,
		Type:                m.Type,
		Status:              Status(m.Status),
		Location:            m.Location,
		Manufacturer:        m.Manufacturer,
		Model:               m.Model,
		SerialNumber:        m.SerialNumber,
		Capacity:            m.Capacity,
		Power:               m.Power,
		InstallationDate:    m.InstallationDate,
		WarrantyExpiry:      m.WarrantyExpiry,
		LastMaintenance:     m.LastMaintenance,
		NextMaintenance:     m.NextMaintenance,
		MaintenanceInterval: m.MaintenanceInterval,
		MaintenanceNotes:    m.MaintenanceNotes,
		OperatingHours:      m.OperatingHours,
		Efficiency:          m.Efficiency,
		Supplier:            m.Supplier,
		SupplierContact:     m.SupplierContact,
		SupportPhone:        m.SupportPhone,
		SupportEmail:        m.SupportEmail,
		Description:         m.Description,
		Notes:               m.Notes,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func FromDataModelSlice(machines []*machineDatamodel.Machine) []*Machine {
	result := make([]*Machine, len(machines))
	for i, m := range machines {
		result[i] = FromDataModel(m)
	}
	return result
}
