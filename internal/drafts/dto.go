package drafts

import (
	"time"

	"github.com/angelmondragon/fleetshop-backend/internal/servicerecords"
	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenDraftInput starts a draft for a vehicle.
type OpenDraftInput struct {
	VehicleID   uuid.UUID `json:"vehicle_id" validate:"required"`
	ServiceType *string   `json:"service_type" validate:"omitempty,max=80"`
	Date        *string   `json:"date"`
}

// UpdateDraftInput replaces the provided metadata fields.
type UpdateDraftInput struct {
	Date          *string   `json:"date"`
	Mileage       *int      `json:"mileage" validate:"omitempty,gte=0"`
	Technician    *string   `json:"technician" validate:"omitempty,max=120"`
	Notes         *string   `json:"notes"`
	SelectedTasks *[]string `json:"selected_tasks"`
}

type ReserveInput struct {
	PartID   uuid.UUID `json:"part_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"omitempty,gte=1"`
}

type ServiceTypeInput struct {
	ServiceType string `json:"service_type" validate:"max=80"`
}

type ToggleTaskInput struct {
	Task string `json:"task" validate:"required,max=200"`
}

// LineDTO is one reserved part with its cost.
type LineDTO struct {
	PartID      uuid.UUID       `json:"part_id"`
	OEMNumber   string          `json:"oem_part_number"`
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Quantity    int             `json:"quantity"`
	LineCost    decimal.Decimal `json:"line_cost"`
}

// DraftView is the client-facing state of a draft session.
type DraftView struct {
	ID               uuid.UUID        `json:"id"`
	State            enums.DraftState `json:"state"`
	VehicleID        uuid.UUID        `json:"vehicle_id"`
	Date             *string          `json:"date,omitempty"`
	ServiceType      *string          `json:"service_type,omitempty"`
	Mileage          *int             `json:"mileage,omitempty"`
	Technician       string           `json:"technician"`
	Notes            string           `json:"notes"`
	Lines            []LineDTO        `json:"lines"`
	SelectedTasks    []string         `json:"selected_tasks"`
	Checklist        []string         `json:"checklist"`
	TotalCost        decimal.Decimal  `json:"total_cost"`
	TotalCostDisplay string           `json:"total_cost_display"`
	Inventory        []SnapshotEntry  `json:"inventory"`
	LastError        string           `json:"last_error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// FailedPart names a line whose stock decrement did not go through.
type FailedPart struct {
	PartID      uuid.UUID `json:"part_id"`
	OEMNumber   string    `json:"oem_part_number"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
}

// CommitResult is the outcome of a successful record write. Partial is set
// when one or more decrements failed afterwards.
type CommitResult struct {
	Record      *servicerecords.ServiceRecordDTO `json:"record"`
	Partial     bool                             `json:"partial"`
	FailedParts []FailedPart                     `json:"failed_parts"`
	Message     string                           `json:"message"`
}

func viewOf(s *Session) *DraftView {
	d := s.Draft
	d.RecomputeTotal()
	lines := make([]LineDTO, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, LineDTO{
			PartID:      l.PartID,
			OEMNumber:   l.OEMNumber,
			Description: l.Description,
			UnitCost:    l.UnitCost,
			Quantity:    l.Quantity,
			LineCost:    l.Cost(),
		})
	}
	var date *string
	if d.Date != nil {
		formatted := d.Date.UTC().Format(dateLayout)
		date = &formatted
	}
	return &DraftView{
		ID:               s.ID,
		State:            s.State,
		VehicleID:        s.VehicleID,
		Date:             date,
		ServiceType:      d.ServiceType,
		Mileage:          d.Mileage,
		Technician:       d.Technician,
		Notes:            d.Notes,
		Lines:            lines,
		SelectedTasks:    append([]string{}, d.SelectedTasks...),
		Checklist:        append([]string{}, s.Checklist...),
		TotalCost:        d.TotalCost,
		TotalCostDisplay: d.TotalCostDisplay(),
		Inventory:        s.Snapshot.Entries(),
		LastError:        s.LastError,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
