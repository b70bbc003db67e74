package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/fleetshop-backend/internal/users"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/db"
	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/security"
)

// RegisterService creates operator accounts.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type RegisterServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db      *db.Client
	hashing config.PasswordConfig
}

func NewRegisterService(p RegisterServiceParams) (RegisterService, error) {
	if p.DB == nil {
		return nil, errors.New("auth: database client is required")
	}
	return &registerService{db: p.DB, hashing: p.PasswordConfig}, nil
}

func emailTaken() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
}

// Register validates and stores a new account. New accounts default to the
// technician role. The email check and insert share one transaction; the
// unique index still catches a concurrent duplicate.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	in, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	var out *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		switch _, err := repo.FindByEmail(ctx, in.Email); {
		case err == nil:
			return emailTaken()
		case !db.IsNotFound(err):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
		}

		user, err := repo.Create(ctx, in)
		if db.IsUniqueViolation(err, "") {
			return emailTaken()
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "create user")
		}
		out = users.FromModel(user)
		return nil
	})
	return out, err
}

func (s *registerService) prepare(req RegisterRequest) (users.CreateUserDTO, error) {
	in := users.CreateUserDTO{
		Email:       users.NormalizeEmail(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        req.Role,
	}
	if in.Role == "" {
		in.Role = enums.UserRoleTechnician
	}

	problems := map[string]string{}
	if in.Email == "" {
		problems["email"] = "is required"
	}
	if in.DisplayName == "" {
		problems["display_name"] = "is required"
	}
	if !in.Role.IsValid() {
		problems["role"] = "must be one of: admin, technician"
	}
	if len(problems) > 0 {
		return in, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(problems)
	}

	hash, err := security.HashPassword(req.Password, s.hashing)
	if err != nil {
		return in, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password").
			WithDetails(map[string]string{"password": "is required"})
	}
	in.PasswordHash = hash
	return in, nil
}
