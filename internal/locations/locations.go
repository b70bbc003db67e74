package locations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Input struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func FromModel(l *models.Location) *LocationDTO {
	return &LocationDTO{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// Repository persists storage locations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]models.Location, error) {
	var rows []models.Location
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).First(&location, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *Repository) Save(ctx context.Context, location *models.Location) error {
	return r.db.WithContext(ctx).Save(location).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Location{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Service exposes location administration.
type Service interface {
	List(ctx context.Context) ([]LocationDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*LocationDTO, error)
	Create(ctx context.Context, input Input) (*LocationDTO, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*LocationDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("location repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]LocationDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "list locations")
	}
	out := make([]LocationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LocationDTO, error) {
	location, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(location), nil
}

func (s *service) Create(ctx context.Context, input Input) (*LocationDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	location := &models.Location{Name: name, Description: input.Description}
	if err := s.repo.Save(ctx, location); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "create location")
	}
	return FromModel(location), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*LocationDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	location, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	location.Name = name
	location.Description = input.Description
	if err := s.repo.Save(ctx, location); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "update location")
	}
	return FromModel(location), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "delete location")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "load location")
	}
	return location, nil
}
