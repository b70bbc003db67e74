package controllers

import (
	"net/http"

	"github.com/angelmondragon/fleetshop-backend/api/middleware"
	"github.com/angelmondragon/fleetshop-backend/api/responses"
)

// Ping answers a smoke check for one route group. Behind Auth the reply
// echoes the caller so clients can confirm their token and role.
func Ping(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"scope": scope, "status": "ok"}
		if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
			body["user_id"], body["role"] = p.UserID, p.Role
		}
		responses.WriteSuccess(w, body)
	}
}
