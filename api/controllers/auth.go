package controllers

import (
	"net/http"

	"github.com/angelmondragon/fleetshop-backend/api/responses"
	"github.com/angelmondragon/fleetshop-backend/api/validators"
	"github.com/angelmondragon/fleetshop-backend/internal/auth"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

// AuthLogin exchanges credentials for an access and refresh token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("auth"))
			return
		}
		var creds auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &creds); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tokens, err := svc.Login(ctx, creds)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}

// AuthRegister creates an operator account. Routes mount it behind the admin
// role outside of dev.
func AuthRegister(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reg == nil {
			responses.WriteError(ctx, logg, w, unavailable("register"))
			return
		}
		var in auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		created, err := reg.Register(ctx, in)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// CurrentUser answers with the caller's identity, or null once the account
// has been removed or deactivated.
func CurrentUser(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, unavailable("auth"))
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		who, err := svc.CurrentUser(ctx, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, who)
	}
}
