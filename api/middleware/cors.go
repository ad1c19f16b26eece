package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/jgechelper/backend/internal/access"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local dev
	"http://localhost:5173", // vite dev server
}

// CORS returns middleware that applies the API's allowed origin policy. An
// empty origins list falls back to the local dev servers.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(origins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-Id", "X-File-Name", ClientRouteHeader, access.ArrivalHeader},
		ExposedHeaders:   []string{"X-Request-Id", maintenanceBannerHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

// OriginChecker applies the same allowlist to websocket upgrades, which
// bypass the CORS preflight. Requests without an Origin header pass.
func OriginChecker(origins []string) func(r *http.Request) bool {
	allowed := allowedOrigins(origins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, candidate := range allowed {
			if candidate == "*" || strings.EqualFold(candidate, origin) {
				return true
			}
		}
		return false
	}
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return defaultCORSOrigins
	}
	return origins
}
