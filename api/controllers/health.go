package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/fieldpos-backend/api/responses"
	"github.com/angelmondragon/fieldpos-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

const (
	envHeader          = "X-FieldPOS-Env"
	readyProbeTimeout  = 2 * time.Second
	dependencyUp       = "ok"
	dependencyDown     = "unavailable"
	dependencyDisabled = "disabled"
)

// Pinger is any dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency. A nil pinger is reported as disabled and
// does not fail readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed []string
		for name, dep := range deps {
			if dep == nil {
				checks[name] = dependencyDisabled
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = dependencyDown
				failed = append(failed, name)
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "readiness check failed")
				}
				continue
			}
			checks[name] = dependencyUp
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
