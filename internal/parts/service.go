package parts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes inventory management.
type Service interface {
	List(ctx context.Context, filter ListFilter) ([]PartDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PartDTO, error)
	Create(ctx context.Context, input CreatePartInput) (*PartDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AttachInvoice(ctx context.Context, id uuid.UUID, upload InvoiceUpload) (*PartDTO, error)
	InvoiceURL(ctx context.Context, id uuid.UUID) (string, error)
}

type partRepository interface {
	List(ctx context.Context) ([]models.Part, error)
	ListInStock(ctx context.Context) ([]models.Part, error)
	ListByCategory(ctx context.Context, category string) ([]models.Part, error)
	ListBelowThreshold(ctx context.Context) ([]models.Part, error)
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]models.Part, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error)
	Create(ctx context.Context, part *models.Part) (*models.Part, error)
	Update(ctx context.Context, part *models.Part) (*models.Part, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetInvoice(ctx context.Context, id uuid.UUID, number *string, url, key string) error
}

// ServiceParams bundles the part service dependencies. Blob may be nil, in
// which case invoice endpoints report a dependency error.
type ServiceParams struct {
	Repo           partRepository
	Blob           blobStore
	MaxUploadBytes int64
	Logger         *logger.Logger
}

type service struct {
	repo           partRepository
	blob           blobStore
	maxUploadBytes int64
	logg           *logger.Logger
}

// NewService constructs the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("part repository required")
	}
	return &service{
		repo:           params.Repo,
		blob:           params.Blob,
		maxUploadBytes: params.MaxUploadBytes,
		logg:           params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]PartDTO, error) {
	var (
		rows []models.Part
		err  error
	)
	switch {
	case strings.TrimSpace(filter.Category) != "":
		rows, err = s.repo.ListByCategory(ctx, strings.TrimSpace(filter.Category))
	case filter.BelowThreshold:
		rows, err = s.repo.ListBelowThreshold(ctx)
	case filter.VehicleID != nil:
		rows, err = s.repo.ListByVehicle(ctx, *filter.VehicleID)
	case filter.InStock:
		rows, err = s.repo.ListInStock(ctx)
	default:
		rows, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "list parts")
	}
	return fromModels(rows), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PartDTO, error) {
	part, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(part), nil
}

func (s *service) Create(ctx context.Context, input CreatePartInput) (*PartDTO, error) {
	part := input.toModel()
	if err := validatePart(part); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, part)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "create part")
	}
	return FromModel(created), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error) {
	part, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	input.apply(part)
	if err := validatePart(part); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, part)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "update part")
	}
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "delete part")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	part, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "load part")
	}
	return part, nil
}

func validatePart(p *models.Part) error {
	missing := []string{}
	if p.OEMPartNumber == "" {
		missing = append(missing, "oem_part_number")
	}
	if p.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	if p.UnitCost.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit_cost cannot be negative")
	}
	if p.Quantity < 0 || p.ReorderThreshold < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity and reorder_threshold cannot be negative")
	}
	return nil
}
