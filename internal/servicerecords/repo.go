package servicerecords

import (
	"context"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/angelmondragon/fleetshop-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists service records and their part lines.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the record together with its lines in a single write.
func (r *Repository) Create(ctx context.Context, record *models.ServiceRecord) (*models.ServiceRecord, error) {
	for i := range record.Parts {
		record.Parts[i].Position = i
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceRecord, error) {
	var record models.ServiceRecord
	err := r.db.WithContext(ctx).Preload("Parts", preloadLines).First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByVehicle returns up to limit records, newest date first, starting after cursor.
func (r *Repository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ServiceRecord, error) {
	query := r.db.WithContext(ctx).
		Preload("Parts", preloadLines).
		Where("vehicle_id = ?", vehicleID)
	if cursor != nil {
		query = query.Where("(date < ?) OR (date = ? AND id < ?)", cursor.Key, cursor.Key, cursor.ID)
	}
	var rows []models.ServiceRecord
	if err := query.Order("date DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the record and its lines. Stock is not restored.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_record_id = ?", id).Delete(&models.ServiceRecordPart{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.ServiceRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
