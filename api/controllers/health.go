package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/fleetshop-backend/api/responses"
	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is any dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency names a pinger for readiness output. A nil Pinger is reported
// as disabled.
type Dependency struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live", "env": cfg.App.Env})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed []string
		for _, dep := range deps {
			if dep.Pinger == nil {
				checks[dep.Name] = "disabled"
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				checks[dep.Name] = "down"
				failed = append(failed, dep.Name)
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": dep.Name, "error": err.Error()}), "health.ready.dependency_down")
				}
				continue
			}
			checks[dep.Name] = "ok"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "env": cfg.App.Env, "checks": checks})
	}
}
