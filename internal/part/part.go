package part

import (
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	partDatamodel "github.com/frahmantamala/plant-maintenance/internal/core/datamodel/part"
)

const Collection = "parts"

type Part struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	PartNumber      string    `json:"part_number"`
	Stock           int       `json:"stock"`
	MachineID       *string   `json:"machine_id,omitempty"`
	Unit            string    `json:"unit,omitempty"`
	UnitCost        float64   `json:"unit_cost"`
	Supplier        string    `json:"supplier,omitempty"`
	SupplierContact string    `json:"supplier_contact,omitempty"`
	Location        string    `json:"location,omitempty"`
	Description     string    `json:"description,omitempty"`
	LowStock        bool      `json:"low_stock"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

var (
	ErrPartNotFound = internal.NewNotFoundError("part not found", internal.ErrCodePartNotFound)
)

func ToDataModel(p *Part) *partDatamodel.Part {
	return &partDatamodel.Part{
		ID:              p.ID,
		Name:            p.Name,
		PartNumber:      p.PartNumber,
		Stock:           p.Stock,
		MachineID:       p.MachineID,
		Unit:            p.Unit,
		UnitCost:        p.UnitCost,
		Supplier:        p.Supplier,
		SupplierContact: p.SupplierContact,
		Location:        p.Location,
		Description:     p.Description,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func FromDataModel(p *partDatamodel.Part) *Part {
	return &Part{
		ID:              p.ID,
		Name:            p.Name,
		PartNumber:      p.PartNumber,
		Stock:           p.Stock,
		MachineID:       p.MachineID,
		Unit:            p.Unit,
		UnitCost:        p.UnitCost,
		Supplier:        p.Supplier,
		SupplierContact: p.SupplierContact,
		Location:        p.Location,
		Description:     p.Description,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func FromDataModelSlice(parts []*partDatamodel.Part) []*Part {
	result := make([]*Part, len(parts))
	for i, p := range parts {
		result[i] = FromDataModel(p)
	}
	return result
}
