package checklists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/fleetshop-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChecklistDTO lists the task names for a vehicle and service type.
type ChecklistDTO struct {
	VehicleID   uuid.UUID `json:"vehicle_id"`
	ServiceType string    `json:"service_type"`
	Tasks       []string  `json:"tasks"`
}

// PutChecklistInput replaces a checklist's tasks.
type PutChecklistInput struct {
	Tasks []string `json:"tasks" validate:"dive,required,max=200"`
}

// Repository persists checklists keyed by "<vehicleID>_<serviceType>".
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns gorm.ErrRecordNotFound when no checklist exists.
func (r *Repository) Get(ctx context.Context, vehicleID uuid.UUID, serviceType string) (*models.Checklist, error) {
	var checklist models.Checklist
	err := r.db.WithContext(ctx).First(&checklist, "id = ?", models.ChecklistID(vehicleID, serviceType)).Error
	if err != nil {
		return nil, err
	}
	return &checklist, nil
}

func (r *Repository) Upsert(ctx context.Context, checklist *models.Checklist) error {
	checklist.ID = models.ChecklistID(checklist.VehicleID, checklist.ServiceType)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tasks", "updated_at"}),
	}).Create(checklist).Error
}

// Service is the checklist collaborator used by drafts and the admin API.
type Service interface {
	GetChecklist(ctx context.Context, vehicleID uuid.UUID, serviceType string) ([]string, error)
	PutChecklist(ctx context.Context, vehicleID uuid.UUID, serviceType string, input PutChecklistInput) (*ChecklistDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checklist repository required")
	}
	return &service{repo: repo}, nil
}

// GetChecklist returns an empty list when no checklist has been defined.
func (s *service) GetChecklist(ctx context.Context, vehicleID uuid.UUID, serviceType string) ([]string, error) {
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		return []string{}, nil
	}
	checklist, err := s.repo.Get(ctx, vehicleID, serviceType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []string{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataUnavailable, err, "load checklist")
	}
	return append([]string{}, checklist.Tasks...), nil
}

func (s *service) PutChecklist(ctx context.Context, vehicleID uuid.UUID, serviceType string, input PutChecklistInput) (*ChecklistDTO, error) {
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service_type is required")
	}
	tasks := make(dbtypes.StringList, 0, len(input.Tasks))
	for _, task := range input.Tasks {
		if trimmed := strings.TrimSpace(task); trimmed != "" {
			tasks = append(tasks, trimmed)
		}
	}
	checklist := &models.Checklist{VehicleID: vehicleID, ServiceType: serviceType, Tasks: tasks}
	if err := s.repo.Upsert(ctx, checklist); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "save checklist")
	}
	return &ChecklistDTO{VehicleID: vehicleID, ServiceType: serviceType, Tasks: []string(tasks)}, nil
}
