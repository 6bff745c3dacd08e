package part

import "time"

type Part struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)"`
	Name            string    `gorm:"column:name;not null"`
	PartNumber      string    `gorm:"column:part_number;index"`
	Stock           int       `gorm:"column:stock;not null;default:0"`
	MachineID       *string   `gorm:"column:machine_id;type:varchar(36)"`
	Unit            string    `gorm:"column:unit"`
	UnitCost        float64   `gorm:"column:unit_cost"`
	Supplier        string    `gorm:"column:supplier"`
	SupplierContact string    `gorm:"column:supplier_contact"`
	Location        string    `gorm:"column:location"`
	Description     string    `gorm:"column:description"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Part) TableName() string {
	return "parts"
}
