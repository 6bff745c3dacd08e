package part

import (
	"strings"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/core/common/validation"
)

// rejectLegacyStock refuses writes that carry the retired stock field names.
func rejectLegacyStock(inStock, inStockSnake *int) *internal.AppError {
	if inStock != nil {
		return internal.NewValidationFieldError("inStock", "inStock is no longer supported, use stock", internal.ErrCodeDeprecatedField)
	}
	if inStockSnake != nil {
		return internal.NewValidationFieldError("in_stock", "in_stock is no longer supported, use stock", internal.ErrCodeDeprecatedField)
	}
	return nil
}

type CreatePartDTO struct {
	Name            string  `json:"name"`
	PartNumber      string  `json:"part_number"`
	Stock           int     `json:"stock"`
	MachineID       *string `json:"machine_id,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	UnitCost        float64 `json:"unit_cost"`
	Supplier        string  `json:"supplier,omitempty"`
	SupplierContact string  `json:"supplier_contact,omitempty"`
	Location        string  `json:"location,omitempty"`
	Description     string  `json:"description,omitempty"`

	InStock      *int `json:"inStock,omitempty"`
	InStockSnake *int `json:"in_stock,omitempty"`
}

func (dto *CreatePartDTO) Validate() error {
	if err := rejectLegacyStock(dto.InStock, dto.InStockSnake); err != nil {
		return err
	}
	dto.Name = strings.TrimSpace(dto.Name)

	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("stock", dto.Stock).MinInt(0, internal.ErrCodeInvalidQuantity)
	v.Field("unit_cost", dto.UnitCost).MinFloat(0)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdatePartDTO is a merge-style patch: nil fields are left untouched.
type UpdatePartDTO struct {
	Name            *string  `json:"name,omitempty"`
	PartNumber      *string  `json:"part_number,omitempty"`
	Stock           *int     `json:"stock,omitempty"`
	MachineID       *string  `json:"machine_id,omitempty"`
	Unit            *string  `json:"unit,omitempty"`
	UnitCost        *float64 `json:"unit_cost,omitempty"`
	Supplier        *string  `json:"supplier,omitempty"`
	SupplierContact *string  `json:"supplier_contact,omitempty"`
	Location        *string  `json:"location,omitempty"`
	Description     *string  `json:"description,omitempty"`

	InStock      *int `json:"inStock,omitempty"`
	InStockSnake *int `json:"in_stock,omitempty"`
}

func (dto *UpdatePartDTO) Validate() error {
	if err := rejectLegacyStock(dto.InStock, dto.InStockSnake); err != nil {
		return err
	}

	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", *dto.Name).Required().MaxLength(200)
	}
	if dto.Stock != nil {
		v.Field("stock", *dto.Stock).MinInt(0, internal.ErrCodeInvalidQuantity)
	}
	if dto.UnitCost != nil {
		v.Field("unit_cost", *dto.UnitCost).MinFloat(0)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Changes returns the column updates for the patch.
func (dto *UpdatePartDTO) Changes() map[string]interface{} {
	changes := map[string]interface{}{}
	if dto.Name != nil {
		changes["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.PartNumber != nil {
		changes["part_number"] = *dto.PartNumber
	}
	if dto.Stock != nil {
		changes["stock"] = *dto.Stock
	}
	if dto.MachineID != nil {
		if *dto.MachineID == "" {
			changes["machine_id"] = nil
		} else {
			changes["machine_id"] = *dto.MachineID
		}
	}
	if dto.Unit != nil {
		changes["unit"] = *dto.Unit
	}
	if dto.UnitCost != nil {
		changes["unit_cost"] = *dto.UnitCost
	}
	if dto.Supplier != nil {
		changes["supplier"] = *dto.Supplier
	}
	if dto.SupplierContact != nil {
		changes["supplier_contact"] = *dto.SupplierContact
	}
	if dto.Location != nil {
		changes["location"] = *dto.Location
	}
	if dto.Description != nil {
		changes["description"] = *dto.Description
	}
	return changes
}

type ListFilter struct {
	Search    string
	MachineID string
	LowStock  bool
	Limit     int
	Offset    int
}

type PartsResponse struct {
	Parts  []*Part `json:"parts"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
