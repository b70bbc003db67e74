package servicerecords

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes read and delete access to committed service records.
// Records are created only by draft commits.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ServiceRecordDTO, error)
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID, params pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("service record repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ServiceRecordDTO, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "load service record")
	}
	return FromModel(record), nil
}

func (s *service) ListByVehicle(ctx context.Context, vehicleID uuid.UUID, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListByVehicle(ctx, vehicleID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "list service records")
	}

	page, next := pagination.Trim(rows, limit, func(r models.ServiceRecord) pagination.Cursor {
		return pagination.Cursor{Key: r.Date, ID: r.ID}
	})
	result := &ListResult{Records: make([]ServiceRecordDTO, 0, len(page)), NextCursor: next}
	for i := range page {
		result.Records = append(result.Records, *FromModel(&page[i]))
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "service record not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "delete service record")
	}
	return nil
}
