package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle is a fleet unit that receives service records.
type Vehicle struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Make         *string   `gorm:"column:make"`
	Model        *string   `gorm:"column:model"`
	Year         *int      `gorm:"column:year"`
	VIN          *string   `gorm:"column:vin"`
	LicensePlate *string   `gorm:"column:license_plate"`
	Mileage      int       `gorm:"column:mileage;not null;default:0"`
	Notes        *string   `gorm:"column:notes"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vehicle) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}
