package controllers

import (
	"net/http"

	"github.com/jgechelper/backend/api/responses"
	"github.com/jgechelper/backend/api/validators"
	"github.com/jgechelper/backend/internal/maintenance"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
)

type configSnapshot interface {
	Current() *maintenance.Config
}

func AdminSettingsGet(svc maintenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		cfg, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

// AdminSettingsUpdate merge-writes the maintenance settings.
func AdminSettingsUpdate(svc maintenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		var patch maintenance.Patch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Update(r.Context(), patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

// PublicMaintenance serves the maintenance screen status from the live
// snapshot, reading the store only while the watcher is still loading.
func PublicMaintenance(configs configSnapshot, svc maintenance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if configs != nil {
			if cfg := configs.Current(); cfg != nil {
				responses.WriteSuccess(w, maintenance.PublicStatus(*cfg))
				return
			}
		}
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeLoading, "access state still loading"))
			return
		}
		cfg, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, maintenance.PublicStatus(cfg))
	}
}
