package auth

import (
	"github.com/angelmondragon/fleetshop-backend/internal/users"
	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
	"github.com/google/uuid"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RegisterRequest creates a workshop user.
type RegisterRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required,min=8"`
	DisplayName string         `json:"display_name" validate:"required,max=120"`
	Role        enums.UserRole `json:"role" validate:"omitempty,oneof=admin technician"`
}

// Identity is the signed-in operator as seen by other components.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
}
