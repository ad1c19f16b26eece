package validators

import (
	"errors"
	"strings"
)

var ErrMissingToken = errors.New("missing bearer token")

// BearerToken extracts the token from an Authorization header value. The
// "Bearer " prefix is optional.
func BearerToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if strings.EqualFold(token, "bearer") {
		return "", ErrMissingToken
	}
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
