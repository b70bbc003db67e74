package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/fleetshop-backend/api/responses"
	pkgAuth "github.com/angelmondragon/fleetshop-backend/pkg/auth"
	"github.com/angelmondragon/fleetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

// Auth requires a bearer access token whose session is still live and
// attaches the caller as a Principal. A nil verifier skips the session check.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			p := Principal{UserID: claims.UserID.String(), Role: string(claims.Role)}
			ctx = WithPrincipal(ctx, p)
			if logg != nil {
				ctx = logg.WithUserID(ctx, p.UserID)
				ctx = logg.WithActorRole(ctx, p.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if verifier == nil {
		return claims, nil
	}
	live, err := verifier.HasSession(r.Context(), claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims, nil
}

// BearerToken accepts "Bearer <token>" in any case as well as a bare token.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return "", false
	}
	if scheme, rest, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "bearer") {
		header = strings.TrimSpace(rest)
	}
	return header, header != ""
}
