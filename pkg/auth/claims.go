package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/fleetshop-backend/pkg/enums"
)

// AccessTokenPayload is what a caller knows about the user when minting.
// JTI doubles as the server-side session key; empty generates a fresh one.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func newClaims(issuer string, now time.Time, ttl time.Duration, p AccessTokenPayload, jti string) AccessTokenClaims {
	return AccessTokenClaims{
		UserID: p.UserID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// Validate runs after the registered claims checks during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return fmt.Errorf("%w: missing user_id", ErrInvalidClaims)
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("%w: role %q", ErrInvalidClaims, c.Role)
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return fmt.Errorf("%w: subject does not match user_id", ErrInvalidClaims)
	}
	return nil
}
