package servicerecords

import (
	"time"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceRecordDTO is a committed maintenance entry.
type ServiceRecordDTO struct {
	ID          uuid.UUID       `json:"id"`
	VehicleID   uuid.UUID       `json:"vehicle_id"`
	Date        string          `json:"date"`
	ServiceType *string         `json:"service_type,omitempty"`
	Mileage     int             `json:"mileage"`
	Technician  string          `json:"technician"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Parts       []PartLineDTO   `json:"parts"`
	Tasks       []string        `json:"tasks"`
	Notes       string          `json:"notes"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PartLineDTO is one flattened part line.
type PartLineDTO struct {
	PartID        uuid.UUID       `json:"part_id"`
	OEMPartNumber string          `json:"oem_part_number"`
	Description   string          `json:"description"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Quantity      int             `json:"quantity"`
}

// ListResult is one page of a vehicle's service history.
type ListResult struct {
	Records    []ServiceRecordDTO `json:"records"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// FromModel maps a record with its preloaded lines.
func FromModel(r *models.ServiceRecord) *ServiceRecordDTO {
	if r == nil {
		return nil
	}
	lines := make([]PartLineDTO, 0, len(r.Parts))
	for _, p := range r.Parts {
		lines = append(lines, PartLineDTO{
			PartID:        p.PartID,
			OEMPartNumber: p.OEMPartNumber,
			Description:   p.Description,
			UnitCost:      p.UnitCost,
			Quantity:      p.Quantity,
		})
	}
	tasks := append([]string{}, r.Tasks...)
	return &ServiceRecordDTO{
		ID:          r.ID,
		VehicleID:   r.VehicleID,
		Date:        r.Date,
		ServiceType: r.ServiceType,
		Mileage:     r.Mileage,
		Technician:  r.Technician,
		TotalCost:   r.TotalCost,
		Parts:       lines,
		Tasks:       tasks,
		Notes:       r.Notes,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}
