package parts

import (
	"strings"
	"time"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartDTO is the API representation of an inventory part.
type PartDTO struct {
	ID               uuid.UUID       `json:"id"`
	OEMPartNumber    string          `json:"oem_part_number"`
	VendorPartNumber *string         `json:"vendor_part_number,omitempty"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	UnitCost         decimal.Decimal `json:"unit_cost" validate:"nonneg_decimal"`
	Quantity         int             `json:"quantity"`
	ReorderThreshold int             `json:"reorder_threshold"`
	BelowThreshold   bool            `json:"below_threshold"`
	SupplierID       *uuid.UUID      `json:"supplier_id,omitempty"`
	LocationID       *uuid.UUID      `json:"location_id,omitempty"`
	VehicleID        *uuid.UUID      `json:"vehicle_id,omitempty"`
	Consumable       bool            `json:"consumable"`
	InvoiceNumber    *string         `json:"invoice_number,omitempty"`
	InvoiceURL       *string         `json:"invoice_url,omitempty"`
	HasInvoice       bool            `json:"has_invoice"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CreatePartInput is the validated payload to add a part to inventory.
type CreatePartInput struct {
	OEMPartNumber    string          `json:"oem_part_number" validate:"required,max=80"`
	VendorPartNumber *string         `json:"vendor_part_number" validate:"omitempty,max=80"`
	Description      string          `json:"description" validate:"required,max=255"`
	Category         string          `json:"category" validate:"max=80"`
	UnitCost         decimal.Decimal `json:"unit_cost" validate:"nonneg_decimal"`
	Quantity         int             `json:"quantity" validate:"gte=0"`
	ReorderThreshold int             `json:"reorder_threshold" validate:"gte=0"`
	SupplierID       *uuid.UUID      `json:"supplier_id"`
	LocationID       *uuid.UUID      `json:"location_id"`
	VehicleID        *uuid.UUID      `json:"vehicle_id"`
	Consumable       bool            `json:"consumable"`
	InvoiceNumber    *string         `json:"invoice_number" validate:"omitempty,max=80"`
}

// UpdatePartInput replaces only the fields that are present.
type UpdatePartInput struct {
	OEMPartNumber    *string          `json:"oem_part_number" validate:"omitempty,max=80"`
	VendorPartNumber *string          `json:"vendor_part_number" validate:"omitempty,max=80"`
	Description      *string          `json:"description" validate:"omitempty,max=255"`
	Category         *string          `json:"category" validate:"omitempty,max=80"`
	UnitCost         *decimal.Decimal `json:"unit_cost" validate:"omitempty,nonneg_decimal"`
	Quantity         *int             `json:"quantity" validate:"omitempty,gte=0"`
	ReorderThreshold *int             `json:"reorder_threshold" validate:"omitempty,gte=0"`
	SupplierID       *uuid.UUID       `json:"supplier_id"`
	LocationID       *uuid.UUID       `json:"location_id"`
	VehicleID        *uuid.UUID       `json:"vehicle_id"`
	Consumable       *bool            `json:"consumable"`
	InvoiceNumber    *string          `json:"invoice_number" validate:"omitempty,max=80"`
}

// ListFilter selects one of the inventory queries. Category, BelowThreshold
// and VehicleID are applied in that order of precedence.
type ListFilter struct {
	Category       string
	BelowThreshold bool
	VehicleID      *uuid.UUID
	InStock        bool
}

func (in CreatePartInput) toModel() *models.Part {
	return &models.Part{
		OEMPartNumber:    strings.TrimSpace(in.OEMPartNumber),
		VendorPartNumber: in.VendorPartNumber,
		Description:      strings.TrimSpace(in.Description),
		Category:         strings.TrimSpace(in.Category),
		UnitCost:         in.UnitCost,
		Quantity:         in.Quantity,
		ReorderThreshold: in.ReorderThreshold,
		SupplierID:       in.SupplierID,
		LocationID:       in.LocationID,
		VehicleID:        in.VehicleID,
		Consumable:       in.Consumable,
		InvoiceNumber:    in.InvoiceNumber,
	}
}

func (in UpdatePartInput) apply(p *models.Part) {
	if in.OEMPartNumber != nil {
		p.OEMPartNumber = strings.TrimSpace(*in.OEMPartNumber)
	}
	if in.VendorPartNumber != nil {
		p.VendorPartNumber = in.VendorPartNumber
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.UnitCost != nil {
		p.UnitCost = *in.UnitCost
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	if in.ReorderThreshold != nil {
		p.ReorderThreshold = *in.ReorderThreshold
	}
	if in.SupplierID != nil {
		p.SupplierID = in.SupplierID
	}
	if in.LocationID != nil {
		p.LocationID = in.LocationID
	}
	if in.VehicleID != nil {
		p.VehicleID = in.VehicleID
	}
	if in.Consumable != nil {
		p.Consumable = *in.Consumable
	}
	if in.InvoiceNumber != nil {
		p.InvoiceNumber = in.InvoiceNumber
	}
}

// FromModel maps a part row onto its DTO.
func FromModel(p *models.Part) *PartDTO {
	if p == nil {
		return nil
	}
	return &PartDTO{
		ID:               p.ID,
		OEMPartNumber:    p.OEMPartNumber,
		VendorPartNumber: p.VendorPartNumber,
		Description:      p.Description,
		Category:         p.Category,
		UnitCost:         p.UnitCost,
		Quantity:         p.Quantity,
		ReorderThreshold: p.ReorderThreshold,
		BelowThreshold:   p.BelowThreshold(),
		SupplierID:       p.SupplierID,
		LocationID:       p.LocationID,
		VehicleID:        p.VehicleID,
		Consumable:       p.Consumable,
		InvoiceNumber:    p.InvoiceNumber,
		InvoiceURL:       p.InvoiceURL,
		HasInvoice:       p.InvoiceKey != nil && *p.InvoiceKey != "",
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromModels(rows []models.Part) []PartDTO {
	out := make([]PartDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
