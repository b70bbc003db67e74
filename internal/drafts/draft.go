package drafts

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/fleetshop-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Line is a part provisionally reserved against the snapshot.
type Line struct {
	PartID      uuid.UUID       `json:"part_id"`
	OEMNumber   string          `json:"oem_part_number"`
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Quantity    int             `json:"quantity"`
	Observed    int             `json:"observed_quantity"`
}

// Cost is the unrounded line total.
func (l Line) Cost() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Draft is the mutable service record being edited. TotalCost is derived from
// Lines after every mutation and never set directly.
type Draft struct {
	VehicleID     uuid.UUID       `json:"vehicle_id"`
	Date          *time.Time      `json:"date,omitempty"`
	ServiceType   *string         `json:"service_type,omitempty"`
	Mileage       *int            `json:"mileage,omitempty"`
	Technician    string          `json:"technician"`
	Lines         []Line          `json:"lines"`
	SelectedTasks []string        `json:"selected_tasks"`
	Notes         string          `json:"notes"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

// NewDraft starts an empty draft for a vehicle.
func NewDraft(vehicleID uuid.UUID) *Draft {
	return &Draft{
		VehicleID:     vehicleID,
		Lines:         []Line{},
		SelectedTasks: []string{},
		TotalCost:     decimal.Zero,
	}
}

func insufficientStock(partID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"part_id":   partID,
			"requested": requested,
			"available": available,
		})
}

func (d *Draft) lineIndex(partID uuid.UUID) int {
	for i := range d.Lines {
		if d.Lines[i].PartID == partID {
			return i
		}
	}
	return -1
}

// Reserve moves delta units of a part from the snapshot onto the draft. A
// part missing from the snapshot has zero availability.
func (d *Draft) Reserve(snap Snapshot, partID uuid.UUID, delta int) error {
	if delta < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	entry, ok := snap[partID]
	if !ok || entry.Available < delta {
		return insufficientStock(partID, delta, snap.Available(partID))
	}

	if idx := d.lineIndex(partID); idx >= 0 {
		d.Lines[idx].Quantity += delta
	} else {
		d.Lines = append(d.Lines, Line{
			PartID:      partID,
			OEMNumber:   entry.OEMNumber,
			Description: entry.Description,
			UnitCost:    entry.UnitCost,
			Quantity:    delta,
			Observed:    entry.Initial,
		})
	}
	entry.Available -= delta
	d.RecomputeTotal()
	return nil
}

// Release returns delta units of a reserved part to the snapshot. The line
// is removed once its quantity reaches zero.
func (d *Draft) Release(snap Snapshot, partID uuid.UUID, delta int) error {
	if delta < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	idx := d.lineIndex(partID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "part is not reserved on this draft")
	}
	line := d.Lines[idx]
	if line.Quantity < delta {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot release more than reserved").
			WithDetails(map[string]any{"part_id": partID, "reserved": line.Quantity, "requested": delta})
	}

	if line.Quantity == delta {
		d.Lines = append(d.Lines[:idx], d.Lines[idx+1:]...)
	} else {
		d.Lines[idx].Quantity -= delta
	}
	snap.restore(line, delta)
	d.RecomputeTotal()
	return nil
}

// ReleaseAll returns every reservation to the snapshot.
func (d *Draft) ReleaseAll(snap Snapshot) {
	for _, line := range d.Lines {
		snap.restore(line, line.Quantity)
	}
	d.Lines = []Line{}
	d.RecomputeTotal()
}

func (s Snapshot) restore(line Line, qty int) {
	if entry, ok := s[line.PartID]; ok {
		entry.Available += qty
		return
	}
	s[line.PartID] = &SnapshotEntry{
		ID:          line.PartID,
		Description: line.Description,
		OEMNumber:   line.OEMNumber,
		UnitCost:    line.UnitCost,
		Available:   qty,
		Initial:     line.Observed,
	}
}

// RecomputeTotal sums unit cost times quantity over all lines from scratch.
func (d *Draft) RecomputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.Cost())
	}
	d.TotalCost = total
	return total
}

// TotalCostDisplay is the total rounded to cents.
func (d *Draft) TotalCostDisplay() string {
	return d.TotalCost.StringFixed(2)
}

// SetDate accepts a calendar date or an RFC 3339 timestamp and stores it as UTC.
func (d *Draft) SetDate(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		d.Date = nil
		return nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD or RFC 3339").
				WithDetails(map[string]any{"date": value})
		}
	}
	utc := parsed.UTC()
	d.Date = &utc
	return nil
}

func (d *Draft) SetMileage(mileage int) error {
	if mileage < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "mileage cannot be negative")
	}
	d.Mileage = &mileage
	return nil
}

func (d *Draft) SetTechnician(name string) {
	d.Technician = strings.TrimSpace(name)
}

func (d *Draft) SetNotes(notes string) {
	d.Notes = notes
}

// SetServiceType changes the tag and clears the selected checklist tasks.
func (d *Draft) SetServiceType(serviceType string) {
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		d.ServiceType = nil
	} else {
		d.ServiceType = &serviceType
	}
	d.SelectedTasks = []string{}
}

func (d *Draft) SetSelectedTasks(tasks []string) {
	selected := make([]string, 0, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		task = strings.TrimSpace(task)
		if task == "" {
			continue
		}
		if _, dup := seen[task]; dup {
			continue
		}
		seen[task] = struct{}{}
		selected = append(selected, task)
	}
	d.SelectedTasks = selected
}

// ToggleTask selects an unselected task or deselects a selected one. It
// reports whether the task is selected afterwards.
func (d *Draft) ToggleTask(task string) bool {
	for i, existing := range d.SelectedTasks {
		if existing == task {
			d.SelectedTasks = append(d.SelectedTasks[:i], d.SelectedTasks[i+1:]...)
			return false
		}
	}
	d.SelectedTasks = append(d.SelectedTasks, task)
	return true
}

// ToPersistable validates the draft and flattens it into a service record.
func (d *Draft) ToPersistable() (*models.ServiceRecord, error) {
	missing := []string{}
	if d.Mileage == nil {
		missing = append(missing, "mileage")
	}
	if d.Date == nil {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", "))).
			WithDetails(map[string]any{"fields": missing})
	}

	lines := make([]models.ServiceRecordPart, 0, len(d.Lines))
	for i, line := range d.Lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every part line needs a quantity of at least 1").
				WithDetails(map[string]any{"part_id": line.PartID})
		}
		lines = append(lines, models.ServiceRecordPart{
			Position:      i,
			PartID:        line.PartID,
			OEMPartNumber: line.OEMNumber,
			Description:   line.Description,
			UnitCost:      line.UnitCost,
			Quantity:      line.Quantity,
		})
	}

	var serviceType *string
	if d.ServiceType != nil {
		st := *d.ServiceType
		serviceType = &st
	}
	return &models.ServiceRecord{
		VehicleID:   d.VehicleID,
		Date:        d.Date.UTC().Format(dateLayout),
		ServiceType: serviceType,
		Mileage:     *d.Mileage,
		Technician:  d.Technician,
		TotalCost:   d.RecomputeTotal(),
		Tasks:       dbtypes.StringList(append([]string{}, d.SelectedTasks...)),
		Notes:       d.Notes,
		Parts:       lines,
	}, nil
}
