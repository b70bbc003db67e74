package vehicles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes vehicle management.
type Service interface {
	List(ctx context.Context) ([]VehicleDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*VehicleDTO, error)
	Create(ctx context.Context, input CreateVehicleInput) (*VehicleDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateVehicleInput) (*VehicleDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository interface {
	List(ctx context.Context) ([]models.Vehicle, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	Create(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error)
	Update(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo repository
}

// NewService constructs the vehicle service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vehicle repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]VehicleDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "list vehicles")
	}
	out := make([]VehicleDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*VehicleDTO, error) {
	vehicle, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(vehicle), nil
}

func (s *service) Create(ctx context.Context, input CreateVehicleInput) (*VehicleDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	created, err := s.repo.Create(ctx, input.toModel())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "create vehicle")
	}
	return FromModel(created), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateVehicleInput) (*VehicleDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
	}
	vehicle, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	input.apply(vehicle)
	updated, err := s.repo.Update(ctx, vehicle)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "update vehicle")
	}
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "delete vehicle")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "load vehicle")
	}
	return vehicle, nil
}
