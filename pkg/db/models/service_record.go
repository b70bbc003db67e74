package models

import (
	"time"

	dbtypes "github.com/angelmondragon/fleetshop-backend/pkg/db/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceRecord is a committed maintenance entry for a vehicle.
type ServiceRecord struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VehicleID   uuid.UUID           `gorm:"column:vehicle_id;type:uuid;not null;index"`
	Date        string              `gorm:"column:date;type:varchar(10);not null"`
	ServiceType *string             `gorm:"column:service_type"`
	Mileage     int                 `gorm:"column:mileage;not null"`
	Technician  string              `gorm:"column:technician;not null;default:''"`
	TotalCost   decimal.Decimal     `gorm:"column:total_cost;type:numeric(12,2);not null;default:0"`
	Tasks       dbtypes.StringList  `gorm:"column:tasks;type:text;not null"`
	Notes       string              `gorm:"column:notes;not null;default:''"`
	CreatedBy   *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	Parts       []ServiceRecordPart `gorm:"foreignKey:ServiceRecordID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ServiceRecord) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	if r.Tasks == nil {
		r.Tasks = dbtypes.StringList{}
	}
	return nil
}

// ServiceRecordPart is a flattened part line of a committed record.
type ServiceRecordPart struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ServiceRecordID uuid.UUID       `gorm:"column:service_record_id;type:uuid;not null;index"`
	Position        int             `gorm:"column:position;not null"`
	PartID          uuid.UUID       `gorm:"column:part_id;type:uuid;not null"`
	OEMPartNumber   string          `gorm:"column:oem_part_number;not null"`
	Description     string          `gorm:"column:description;not null"`
	UnitCost        decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
}

func (p *ServiceRecordPart) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
