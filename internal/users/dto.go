package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
)

// UserDTO is the account as clients see it; the password hash never leaves
// this package.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO is a registration that already passed validation and
// hashing. A nil IsActive means active; an empty Role means technician.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Role         enums.UserRole
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.LastLoginAt != nil {
		at := u.LastLoginAt.UTC()
		dto.LastLoginAt = &at
	}
	return &dto
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		DisplayName:  strings.TrimSpace(c.DisplayName),
		Role:         roleOrDefault(c.Role),
		IsActive:     c.IsActive == nil || *c.IsActive,
	}
}

func roleOrDefault(r enums.UserRole) enums.UserRole {
	if r == "" {
		return enums.UserRoleTechnician
	}
	return r
}

// NormalizeEmail is the stored and looked-up form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
