package models

import (
	"time"

	dbtypes "github.com/angelmondragon/fleetshop-backend/pkg/db/types"
	"github.com/google/uuid"
)

// Checklist holds the task names for one vehicle and service type. ID is the
// composite "<vehicleID>_<serviceType>".
type Checklist struct {
	ID          string             `gorm:"column:id;primaryKey"`
	VehicleID   uuid.UUID          `gorm:"column:vehicle_id;type:uuid;not null;index"`
	ServiceType string             `gorm:"column:service_type;not null"`
	Tasks       dbtypes.StringList `gorm:"column:tasks;type:text;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ChecklistID builds the composite checklist key.
func ChecklistID(vehicleID uuid.UUID, serviceType string) string {
	return vehicleID.String() + "_" + serviceType
}
