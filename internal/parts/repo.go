package parts

import (
	"context"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wraps inventory persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ordered(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Order("description ASC").Order("id ASC")
}

// List returns the whole catalog.
func (r *Repository) List(ctx context.Context) ([]models.Part, error) {
	var rows []models.Part
	if err := r.ordered(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListInStock returns parts with a positive quantity.
func (r *Repository) ListInStock(ctx context.Context) ([]models.Part, error) {
	var rows []models.Part
	if err := r.ordered(ctx).Where("quantity > ?", 0).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListByCategory(ctx context.Context, category string) ([]models.Part, error) {
	var rows []models.Part
	if err := r.ordered(ctx).Where("category = ?", category).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBelowThreshold returns parts at or under their reorder threshold.
func (r *Repository) ListBelowThreshold(ctx context.Context) ([]models.Part, error) {
	var rows []models.Part
	if err := r.ordered(ctx).Where("quantity <= reorder_threshold").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]models.Part, error) {
	var rows []models.Part
	if err := r.ordered(ctx).Where("vehicle_id = ?", vehicleID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *Repository) Create(ctx context.Context, part *models.Part) (*models.Part, error) {
	if err := r.db.WithContext(ctx).Create(part).Error; err != nil {
		return nil, err
	}
	return part, nil
}

func (r *Repository) Update(ctx context.Context, part *models.Part) (*models.Part, error) {
	if err := r.db.WithContext(ctx).Save(part).Error; err != nil {
		return nil, err
	}
	return part, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Part{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock lowers the quantity by qty, flooring at zero, and returns the
// updated row. The read and the write are separate statements with no lock, so
// concurrent commits against the same part can lose an update.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (*models.Part, error) {
	part, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := part.Quantity - qty
	if next < 0 {
		next = 0
	}
	if err := r.db.WithContext(ctx).Model(&models.Part{}).Where("id = ?", id).Update("quantity", next).Error; err != nil {
		return nil, err
	}
	part.Quantity = next
	return part, nil
}

// SetInvoice stores the uploaded invoice reference on the part.
func (r *Repository) SetInvoice(ctx context.Context, id uuid.UUID, number *string, url, key string) error {
	updates := map[string]any{
		"invoice_url": url,
		"invoice_key": key,
	}
	if number != nil {
		updates["invoice_number"] = *number
	}
	res := r.db.WithContext(ctx).Model(&models.Part{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
