package suppliers

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

// SupplierDTO is the API shape of a supplier.
type SupplierDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContactName *string   `json:"contact_name,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Website     *string   `json:"website,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input is used for both create and update; update replaces every field.
type Input struct {
	Name        string  `json:"name" validate:"required,max=160"`
	ContactName *string `json:"contact_name" validate:"omitempty,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=40"`
	Website     *string `json:"website" validate:"omitempty,url"`
	Notes       *string `json:"notes"`
}

func (in Input) apply(s *models.Supplier) {
	s.Name = strings.TrimSpace(in.Name)
	s.ContactName = in.ContactName
	s.Email = in.Email
	s.Phone = in.Phone
	s.Website = in.Website
	s.Notes = in.Notes
}

func FromModel(s *models.Supplier) *SupplierDTO {
	return &SupplierDTO{
		ID:          s.ID,
		Name:        s.Name,
		ContactName: s.ContactName,
		Email:       s.Email,
		Phone:       s.Phone,
		Website:     s.Website,
		Notes:       s.Notes,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// Repository persists suppliers.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]models.Supplier, error) {
	var rows []models.Supplier
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// Save inserts or updates depending on whether the id is set.
func (r *Repository) Save(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Supplier{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Service exposes supplier administration.
type Service interface {
	List(ctx context.Context) ([]SupplierDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SupplierDTO, error)
	Create(ctx context.Context, input Input) (*SupplierDTO, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*SupplierDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]SupplierDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "list suppliers")
	}
	out := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SupplierDTO, error) {
	supplier, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(supplier), nil
}

func (s *service) Create(ctx context.Context, input Input) (*SupplierDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	supplier := &models.Supplier{}
	input.apply(supplier)
	if err := s.repo.Save(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "create supplier")
	}
	return FromModel(supplier), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*SupplierDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	supplier, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	input.apply(supplier)
	if err := s.repo.Save(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "update supplier")
	}
	return FromModel(supplier), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "delete supplier")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "load supplier")
	}
	return supplier, nil
}
