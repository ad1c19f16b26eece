package controllers

import (
	"context"
	"net/http"

	"github.com/jgechelper/backend/api/middleware"
	"github.com/jgechelper/backend/api/responses"
	"github.com/jgechelper/backend/api/validators"
	"github.com/jgechelper/backend/internal/auth"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
)

// AuthSession restores a session from a provider ID token.
func AuthSession(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return signInHandler(svc, logg, http.StatusOK, func(ctx context.Context, r *http.Request) (*auth.SessionResponse, error) {
		var body auth.TokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Session(ctx, body)
	})
}

func AuthGoogle(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return signInHandler(svc, logg, http.StatusOK, func(ctx context.Context, r *http.Request) (*auth.SessionResponse, error) {
		var body auth.TokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Google(ctx, body)
	})
}

// AuthLogin wires the email and password sign-in into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return signInHandler(svc, logg, http.StatusOK, func(ctx context.Context, r *http.Request) (*auth.SessionResponse, error) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeAuthFailed, "Invalid email or password")
		}
		return svc.Login(ctx, body)
	})
}

func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return signInHandler(svc, logg, http.StatusCreated, func(ctx context.Context, r *http.Request) (*auth.SessionResponse, error) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Register(ctx, body)
	})
}

func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return signInHandler(svc, logg, http.StatusOK, func(ctx context.Context, r *http.Request) (*auth.SessionResponse, error) {
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Refresh(ctx, body)
	})
}

func AuthPasswordReset(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		var body auth.PasswordResetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.PasswordReset(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

// AuthLogout drops the caller's app session and provider refresh tokens.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		ctx := r.Context()
		if err := svc.Logout(ctx, middleware.UserIDFromContext(ctx), middleware.SessionIDFromContext(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		view, err := svc.Me(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func signInHandler(svc auth.Service, logg *logger.Logger, status int, run func(ctx context.Context, r *http.Request) (*auth.SessionResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		result, err := run(r.Context(), r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
