package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
)

// Repository persists workshop accounts. Lookups return gorm.ErrRecordNotFound
// untouched so callers can branch on db.IsNotFound.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func withEmail(email string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("email = ?", NormalizeEmail(email)) }
}

func withID(id uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("id = ?", id) }
}

func (r *Repository) Create(ctx context.Context, in CreateUserDTO) (*models.User, error) {
	user := in.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.take(ctx, withEmail(email))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.take(ctx, withID(id))
}

// RecordLogin stamps last_login_at. A non-empty rehash swaps the stored
// password hash in the same UPDATE.
func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error {
	cols := map[string]any{"last_login_at": at}
	if rehash = strings.TrimSpace(rehash); rehash != "" {
		cols["password_hash"] = rehash
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Scopes(withID(id)).UpdateColumns(cols).Error
}

func (r *Repository) take(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (*models.User, error) {
	user := new(models.User)
	if err := r.db.WithContext(ctx).Scopes(scope).Take(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
