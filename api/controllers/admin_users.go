package controllers

import (
	"net/http"

	"github.com/jgechelper/backend/api/middleware"
	"github.com/jgechelper/backend/api/responses"
	"github.com/jgechelper/backend/api/validators"
	"github.com/jgechelper/backend/internal/users"
	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
)

type userStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active banned"`
}

// AdminUserList lists users sorted by ?sort=newest|oldest|name|status.
func AdminUserList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}
		sortBy, err := validators.QueryOneOf(r, "sort", users.SortNewest, users.SortOldest, users.SortName, users.SortStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), sortBy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminUserSetStatus bans or unbans a user.
func AdminUserSetStatus(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}
		id, err := routeID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body userStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseUserStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be active or banned"))
			return
		}
		summary, err := svc.SetStatus(r.Context(), middleware.UserIDFromContext(r.Context()), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
