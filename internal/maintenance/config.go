package maintenance

import (
	"strconv"
	"strings"
	"time"
)

// Canonical document keys written by this service.
const (
	KeyActive       = "maintenanceMode"
	KeyEndTime      = "maintenanceEndTime"
	KeyStartedAt    = "maintenanceStartedAt"
	KeyContactEmail = "contactEmail"
)

const datetimeLocal = "2006-01-02T15:04"

var (
	activeKeys    = []string{KeyActive, "maintenance_mode", "active"}
	endTimeKeys   = []string{KeyEndTime, "maintenance_end_time", "estimatedEndTime"}
	startedAtKeys = []string{KeyStartedAt, "maintenance_started_at", "startedAt"}
	contactKeys   = []string{KeyContactEmail, "contact_email"}
)

// Config is the normalized settings/general document. Snapshots are
// immutable once published.
type Config struct {
	Active           bool       `json:"active"`
	ContactEmail     string     `json:"contact_email"`
	EstimatedEndTime *time.Time `json:"estimated_end_time,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
}

// Inactive is the config published when no document exists or loading timed out.
func Inactive(defaultEmail string) Config {
	return Config{ContactEmail: defaultEmail}
}

// Normalize maps a loosely typed settings document onto Config. Unknown or
// malformed values read as absent.
func Normalize(raw map[string]any, loc *time.Location, defaultEmail string) Config {
	if loc == nil {
		loc = time.UTC
	}
	cfg := Config{
		Active:           parseBool(lookup(raw, activeKeys)),
		EstimatedEndTime: ParseTime(lookup(raw, endTimeKeys), loc),
		StartedAt:        ParseTime(lookup(raw, startedAtKeys), loc),
	}
	if email, ok := lookup(raw, contactKeys).(string); ok {
		cfg.ContactEmail = strings.TrimSpace(email)
	}
	if cfg.ContactEmail == "" {
		cfg.ContactEmail = defaultEmail
	}
	return cfg
}

func lookup(raw map[string]any, keys []string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func parseBool(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		return err == nil && b
	}
	return false
}

// ParseTime accepts native timestamps, RFC3339 strings, datetime-local
// strings in loc, and epoch milliseconds.
func ParseTime(v any, loc *time.Location) *time.Time {
	var t time.Time
	switch value := v.(type) {
	case time.Time:
		t = value
	case *time.Time:
		if value == nil {
			return nil
		}
		t = *value
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			parsed, err = time.ParseInLocation(datetimeLocal, s, loc)
		}
		if err != nil {
			parsed, err = time.ParseInLocation(datetimeLocal+":05", s, loc)
		}
		if err != nil {
			return nil
		}
		t = parsed
	case float64:
		t = time.UnixMilli(int64(value))
	case int64:
		t = time.UnixMilli(value)
	default:
		return nil
	}
	if t.IsZero() {
		return nil
	}
	return &t
}
