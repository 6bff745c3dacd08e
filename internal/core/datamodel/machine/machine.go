package machine

import "time"

type Machine struct {
	ID                  string     `gorm:"primaryKey;type:varchar(36)"`
	Name                string     `gorm:"column:name;not null"`
	Type                string     `gorm:"column:type"`
	Status              string     `gorm:"column:status;not null;default:Operational"`
	Location            string     `gorm:"column:location"`
	Manufacturer        string     `gorm:"column:manufacturer"`
	Model               string     `gorm:"column:model"`
	SerialNumber        string     `gorm:"column:serial_number"`
	Capacity            string     `gorm:"column:capacity"`
	Power               string     `gorm:"column:power"`
	InstallationDate    *time.Time `gorm:"column:installation_date"`
	WarrantyExpiry      *time.Time `gorm:"column:warranty_expiry"`
	LastMaintenance     *time.Time `gorm:"column:last_maintenance"`
	NextMaintenance     *time.Time `gorm:"column:next_maintenance"`
	MaintenanceInterval int        `gorm:"column:maintenance_interval_days"`
	MaintenanceNotes    string     `gorm:"column:maintenance_notes"`
	OperatingHours      float64    `gorm:"column:operating_hours"`
	Efficiency          float64    `gorm:"column:efficiency"`
	Supplier            string     `gorm:"column:supplier"`
	SupplierContact     string     `gorm:"column:supplier_contact"`
	SupportPhone        string     `gorm:"column:support_phone"`
	SupportEmail        string     `gorm:"column:support_email"`
	Description         string     `gorm:"column:description"`
	Notes               string     `gorm:"column:notes"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Machine) TableName() string {
	return "machines"
}
