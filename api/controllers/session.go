package controllers

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/angelmondragon/fleetshop-backend/api/middleware"
	"github.com/angelmondragon/fleetshop-backend/api/responses"
	"github.com/angelmondragon/fleetshop-backend/api/validators"
	pkgAuth "github.com/angelmondragon/fleetshop-backend/pkg/auth"
	"github.com/angelmondragon/fleetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// presentedSession reads the bearer token, tolerating expiry, and returns its
// claims. Logout and refresh both run after the access token has lapsed.
func presentedSession(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, errors.New(errors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New(errors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// AuthLogout revokes the session behind the presented access token.
func AuthLogout(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if manager == nil {
			responses.WriteError(ctx, logg, w, unavailable("session"))
			return
		}
		claims, err := presentedSession(r, cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := manager.Revoke(ctx, claims.ID); err != nil {
			responses.WriteError(ctx, logg, w, errors.Wrap(errors.CodeDependency, err, "revoke session"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh trades a refresh token for a new access/refresh pair. The old
// pair stops working once this returns.
func AuthRefresh(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if manager == nil {
			responses.WriteError(ctx, logg, w, unavailable("session"))
			return
		}
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		claims, err := presentedSession(r, cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		accessID, refreshToken, err := manager.Rotate(ctx, claims.ID, body.RefreshToken)
		switch {
		case stderrors.Is(err, session.ErrInvalidRefreshToken):
			responses.WriteError(ctx, logg, w, errors.New(errors.CodeUnauthorized, "invalid refresh token"))
			return
		case err != nil:
			responses.WriteError(ctx, logg, w, errors.Wrap(errors.CodeDependency, err, "rotate session"))
			return
		}

		accessToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			UserID: claims.UserID,
			Role:   claims.Role,
			JTI:    accessID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, errors.Wrap(errors.CodeInternal, err, "mint access token"))
			return
		}
		responses.WriteSuccess(w, refreshResponse{AccessToken: accessToken, RefreshToken: refreshToken})
	}
}
