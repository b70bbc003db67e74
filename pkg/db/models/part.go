package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part is a stocked inventory item. Quantity is only lowered by draft commits
// and by administrative edits.
type Part struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OEMPartNumber    string          `gorm:"column:oem_part_number;not null;index"`
	VendorPartNumber *string         `gorm:"column:vendor_part_number"`
	Description      string          `gorm:"column:description;not null"`
	Category         string          `gorm:"column:category;not null;default:'';index"`
	UnitCost         decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	Quantity         int             `gorm:"column:quantity;not null;default:0"`
	ReorderThreshold int             `gorm:"column:reorder_threshold;not null;default:0"`
	SupplierID       *uuid.UUID      `gorm:"column:supplier_id;type:uuid"`
	LocationID       *uuid.UUID      `gorm:"column:location_id;type:uuid"`
	VehicleID        *uuid.UUID      `gorm:"column:vehicle_id;type:uuid;index"`
	Consumable       bool            `gorm:"column:consumable;not null;default:false"`
	InvoiceNumber    *string         `gorm:"column:invoice_number"`
	InvoiceURL       *string         `gorm:"column:invoice_url"`
	InvoiceKey       *string         `gorm:"column:invoice_key"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Part) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// BelowThreshold reports whether the part should be reordered.
func (p Part) BelowThreshold() bool {
	return p.Quantity <= p.ReorderThreshold
}
