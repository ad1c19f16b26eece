package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jgechelper/backend/api/responses"
	"github.com/jgechelper/backend/internal/access"
	"github.com/jgechelper/backend/internal/identity"
	"github.com/jgechelper/backend/internal/maintenance"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/metrics"
)

const (
	maintenanceBannerHeader = "X-Maintenance-Banner"
	// ClientRouteHeader carries the SPA route the request was made for.
	ClientRouteHeader = "X-Client-Route"
	loadingRetryAfter = "1"
)

type configSnapshot interface {
	Current() *maintenance.Config
}

type MaintenanceParams struct {
	Gate     *access.Gate
	Configs  configSnapshot
	Arrivals *access.ArrivalStore
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Now      func() time.Time
}

// Maintenance gates content routes with the access gate. It must run after
// OptionalAuth so the caller's role is already on the context.
func Maintenance(params MaintenanceParams) func(http.Handler) http.Handler {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// content routes never match the login exception, so the
			// client's route claim is ignored here
			arrival := params.Arrivals.Ensure(w, r)
			decision := params.Gate.Decide(GateInput(r, arrival, params.Configs.Current(), r.URL.Path), now())
			params.Metrics.IncDecision(string(decision.Mode))

			switch decision.Mode {
			case access.ModeLoading, access.ModeAuthPending:
				w.Header().Set("Retry-After", loadingRetryAfter)
				responses.WriteError(r.Context(), params.Logger, w, pkgerrors.New(pkgerrors.CodeLoading, "access state still loading"))
				return
			case access.ModeBlocked:
				if retry := retryAfter(decision.Screen); retry != "" {
					w.Header().Set("Retry-After", retry)
				}
				err := pkgerrors.New(pkgerrors.CodeMaintenance, "The site is under maintenance.").WithDetails(decision.Screen)
				responses.WriteError(r.Context(), params.Logger, w, err)
				return
			}

			if decision.Banner != nil {
				w.Header().Set(maintenanceBannerHeader, decision.Banner.Kind)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GateInput builds the gate input for an HTTP request evaluated at route.
// Server-side requests always carry a settled auth state: either verified
// claims or anonymous.
func GateInput(r *http.Request, arrival access.Arrival, cfg *maintenance.Config, route string) access.Input {
	ctx := r.Context()
	in := access.Input{
		Role:         RoleFromContext(ctx),
		AuthResolved: true,
		Config:       cfg,
		Arrival:      &arrival,
		Route:        route,
	}
	if uid := UserIDFromContext(ctx); uid != "" {
		in.Identity = &identity.Identity{UID: uid, Email: EmailFromContext(ctx)}
	}
	return in
}

// ClientRoute prefers the explicit route query, then the route header, then "/".
// Only the access endpoints use it.
func ClientRoute(r *http.Request) string {
	if route := strings.TrimSpace(r.URL.Query().Get("route")); route != "" {
		return route
	}
	if route := strings.TrimSpace(r.Header.Get(ClientRouteHeader)); route != "" {
		return route
	}
	return "/"
}

func retryAfter(screen *access.Screen) string {
	if screen == nil || screen.Countdown == nil || screen.Countdown.Complete {
		return ""
	}
	c := screen.Countdown
	secs := ((c.Days*24+c.Hours)*60+c.Minutes)*60 + c.Seconds
	return strconv.FormatInt(secs, 10)
}
