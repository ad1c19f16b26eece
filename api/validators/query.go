package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/jgechelper/backend/pkg/errors"
)

// QueryString returns the trimmed query value, rejecting values over maxLen.
func QueryString(r *http.Request, key string, maxLen int) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if maxLen > 0 && len(raw) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter too long").WithDetails(map[string]any{"field": key, "max": maxLen})
	}
	return raw, nil
}

// QueryOneOf returns the query value when it is empty or one of allowed.
func QueryOneOf(r *http.Request, key string, allowed ...string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	if raw == "" {
		return "", nil
	}
	for _, candidate := range allowed {
		if raw == candidate {
			return raw, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter not allowed").WithDetails(map[string]any{"field": key, "allowed": allowed})
}
