package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/fleetshop-backend/pkg/config"
)

const clockSkew = 5 * time.Second

var (
	ErrSigningConfig = errors.New("jwt signing config incomplete")
	ErrInvalidClaims = errors.New("access token claims invalid")
)

var signingMethod = jwt.SigningMethodHS256

func checkSigningConfig(cfg config.JWTConfig, minting bool) error {
	switch {
	case cfg.Secret == "":
		return fmt.Errorf("%w: secret", ErrSigningConfig)
	case cfg.Issuer == "":
		return fmt.Errorf("%w: issuer", ErrSigningConfig)
	case minting && cfg.ExpirationMinutes <= 0:
		return fmt.Errorf("%w: expiration minutes", ErrSigningConfig)
	}
	return nil
}

// MintAccessToken signs an HS256 token valid for cfg.ExpirationMinutes from
// now. The jti identifies the server-side session.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigningConfig(cfg, true); err != nil {
		return "", err
	}
	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := newClaims(cfg.Issuer, now, ttl, payload, jti)
	if err := claims.Validate(); err != nil {
		return "", err
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and lifetime.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw, jwt.WithExpirationRequired(), jwt.WithLeeway(clockSkew))
}

// ParseAccessTokenAllowExpired verifies signature and issuer but ignores
// exp/nbf, so logout and refresh can still recover the session id.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	claims, err := parse(cfg, raw, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("%w: issuer", jwt.ErrTokenInvalidIssuer)
	}
	if err := claims.Validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

func parse(cfg config.JWTConfig, raw string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if err := checkSigningConfig(cfg, false); err != nil {
		return nil, err
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)

	claims := &AccessTokenClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...); err != nil {
		return nil, err
	}
	return claims, nil
}
