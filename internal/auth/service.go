package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetshop-backend/internal/users"
	pkgAuth "github.com/angelmondragon/fleetshop-backend/pkg/auth"
	"github.com/angelmondragon/fleetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/db"
	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/security"
)

// Service signs operators in and resolves who is calling.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*Identity, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

// ServiceParams wires a login Service. When PasswordConfig is set, a hash
// weaker than those settings is replaced on the next successful login.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig *config.PasswordConfig
}

type service struct {
	users    userRepository
	sessions sessionManager
	jwt      config.JWTConfig
	hashing  *config.PasswordConfig
	now      func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.UserRepo == nil:
		return nil, errors.New("auth: user repository is required")
	case p.SessionManager == nil:
		return nil, errors.New("auth: session manager is required")
	}
	return &service{users: p.UserRepo, sessions: p.SessionManager, jwt: p.JWTConfig, hashing: p.PasswordConfig, now: time.Now}, nil
}

// badCredentials is the single answer for unknown, inactive and mistyped
// accounts.
func badCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

// decoyHash is verified against when the email is unknown so that both
// paths pay for one argon2 derivation.
var decoyHash = sync.OnceValue(func() string {
	h, _ := security.HashPassword("decoy-password", config.PasswordConfig{})
	return h
})

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.verify(ctx, users.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.stampLogin(ctx, user, req.Password, at); err != nil {
		return nil, err
	}

	jti := session.NewAccessID()
	access, err := pkgAuth.MintAccessToken(s.jwt, at, pkgAuth.AccessTokenPayload{UserID: user.ID, Role: user.Role, JTI: jti})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := s.sessions.Generate(ctx, jti)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session")
	}
	return &LoginResponse{AccessToken: access, RefreshToken: refresh, User: users.FromModel(user)}, nil
}

func (s *service) verify(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" {
		return nil, badCredentials()
	}
	user, err := s.users.FindByEmail(ctx, email)
	if db.IsNotFound(err) {
		_, _ = security.VerifyPassword(password, decoyHash())
		return nil, badCredentials()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive || !user.Role.IsValid() {
		return nil, badCredentials()
	}
	return user, nil
}

// stampLogin records the login time and, if needed, an upgraded hash. A
// failed rehash is not fatal; the old hash keeps working.
func (s *service) stampLogin(ctx context.Context, user *models.User, password string, at time.Time) error {
	var rehash string
	if s.hashing != nil && security.NeedsRehash(user.PasswordHash, *s.hashing) {
		rehash, _ = security.HashPassword(password, *s.hashing)
	}
	if err := s.users.RecordLogin(ctx, user.ID, at, rehash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	user.LastLoginAt = &at
	if rehash != "" {
		user.PasswordHash = rehash
	}
	return nil
}

// CurrentUser returns nil, without error, for anonymous callers and for
// accounts that were deleted or deactivated after the token was issued.
func (s *service) CurrentUser(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	user, err := s.users.FindByID(ctx, userID)
	switch {
	case db.IsNotFound(err):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	case !user.IsActive:
		return nil, nil
	}
	return &Identity{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}, nil
}
