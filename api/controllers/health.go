package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/jgechelper/backend/api/responses"
	"github.com/jgechelper/backend/pkg/config"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const readyTimeout = 3 * time.Second

// Pinger is any dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-JGEC-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency in parallel and fails when any
// of them is down.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-JGEC-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		results := make([]error, len(names))

		g, gctx := errgroup.WithContext(ctx)
		for i, name := range names {
			pinger := deps[name]
			g.Go(func() error {
				if pinger == nil {
					return nil
				}
				results[i] = pinger.Ping(gctx)
				return nil
			})
		}
		_ = g.Wait()

		checks := make(map[string]string, len(names))
		healthy := true
		for i, name := range names {
			if results[i] != nil {
				healthy = false
				checks[name] = "down"
				continue
			}
			checks[name] = "ok"
		}
		if !healthy {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
