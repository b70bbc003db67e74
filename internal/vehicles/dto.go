package vehicles

import (
	"strings"
	"time"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/google/uuid"
)

// VehicleDTO is the API representation of a fleet vehicle.
type VehicleDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Make         *string   `json:"make,omitempty"`
	Model        *string   `json:"model,omitempty"`
	Year         *int      `json:"year,omitempty"`
	VIN          *string   `json:"vin,omitempty"`
	LicensePlate *string   `json:"license_plate,omitempty"`
	Mileage      int       `json:"mileage"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateVehicleInput is the validated create payload.
type CreateVehicleInput struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Make         *string `json:"make" validate:"omitempty,max=80"`
	Model        *string `json:"model" validate:"omitempty,max=80"`
	Year         *int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	VIN          *string `json:"vin" validate:"omitempty,max=32"`
	LicensePlate *string `json:"license_plate" validate:"omitempty,max=20"`
	Mileage      int     `json:"mileage" validate:"gte=0"`
	Notes        *string `json:"notes"`
}

// UpdateVehicleInput carries optional field replacements.
type UpdateVehicleInput struct {
	Name         *string `json:"name" validate:"omitempty,max=120"`
	Make         *string `json:"make" validate:"omitempty,max=80"`
	Model        *string `json:"model" validate:"omitempty,max=80"`
	Year         *int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	VIN          *string `json:"vin" validate:"omitempty,max=32"`
	LicensePlate *string `json:"license_plate" validate:"omitempty,max=20"`
	Mileage      *int    `json:"mileage" validate:"omitempty,gte=0"`
	Notes        *string `json:"notes"`
}

func (in CreateVehicleInput) toModel() *models.Vehicle {
	return &models.Vehicle{
		Name:         strings.TrimSpace(in.Name),
		Make:         in.Make,
		Model:        in.Model,
		Year:         in.Year,
		VIN:          in.VIN,
		LicensePlate: in.LicensePlate,
		Mileage:      in.Mileage,
		Notes:        in.Notes,
	}
}

func (in UpdateVehicleInput) apply(v *models.Vehicle) {
	if in.Name != nil {
		v.Name = strings.TrimSpace(*in.Name)
	}
	if in.Make != nil {
		v.Make = in.Make
	}
	if in.Model != nil {
		v.Model = in.Model
	}
	if in.Year != nil {
		v.Year = in.Year
	}
	if in.VIN != nil {
		v.VIN = in.VIN
	}
	if in.LicensePlate != nil {
		v.LicensePlate = in.LicensePlate
	}
	if in.Mileage != nil {
		v.Mileage = *in.Mileage
	}
	if in.Notes != nil {
		v.Notes = in.Notes
	}
}

// FromModel maps a vehicle row onto the DTO.
func FromModel(v *models.Vehicle) *VehicleDTO {
	if v == nil {
		return nil
	}
	return &VehicleDTO{
		ID:           v.ID,
		Name:         v.Name,
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		VIN:          v.VIN,
		LicensePlate: v.LicensePlate,
		Mileage:      v.Mileage,
		Notes:        v.Notes,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}
