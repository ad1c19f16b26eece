package maintenance

import (
	"testing"
	"time"
)

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestNormalizeCanonicalKeys(t *testing.T) {
	started := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	cfg := Normalize(map[string]any{
		"maintenanceMode":      true,
		"maintenanceEndTime":   "2025-03-01T18:30",
		"maintenanceStartedAt": started,
		"contactEmail":         " ops@jgec.ac.in ",
	}, kolkata(t), "admin@jgec.ac.in")

	if !cfg.Active {
		t.Fatalf("expected active")
	}
	if cfg.ContactEmail != "ops@jgec.ac.in" {
		t.Fatalf("unexpected contact email %q", cfg.ContactEmail)
	}
	wantEnd := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	if cfg.EstimatedEndTime == nil || !cfg.EstimatedEndTime.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, cfg.EstimatedEndTime)
	}
	if cfg.StartedAt == nil || !cfg.StartedAt.Equal(started) {
		t.Fatalf("expected started %v, got %v", started, cfg.StartedAt)
	}
}

func TestNormalizeAlternateKeys(t *testing.T) {
	cfg := Normalize(map[string]any{
		"maintenance_mode":       "true",
		"estimatedEndTime":       "2025-03-01T18:30:00Z",
		"maintenance_started_at": float64(1740816000000),
		"contact_email":          "desk@jgec.ac.in",
	}, time.UTC, "admin@jgec.ac.in")

	if !cfg.Active || cfg.ContactEmail != "desk@jgec.ac.in" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.EstimatedEndTime == nil || cfg.EstimatedEndTime.Hour() != 18 {
		t.Fatalf("expected RFC3339 end time, got %v", cfg.EstimatedEndTime)
	}
	if cfg.StartedAt == nil || cfg.StartedAt.UnixMilli() != 1740816000000 {
		t.Fatalf("expected epoch millis start, got %v", cfg.StartedAt)
	}

	cfg = Normalize(map[string]any{"active": true, "startedAt": "2025-03-01T08:00:00Z"}, time.UTC, "x@y.z")
	if !cfg.Active || cfg.StartedAt == nil {
		t.Fatalf("expected short keys to be read, got %+v", cfg)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := Normalize(nil, nil, "admin@jgec.ac.in")
	if cfg.Active || cfg.StartedAt != nil || cfg.EstimatedEndTime != nil {
		t.Fatalf("expected inactive defaults, got %+v", cfg)
	}
	if cfg.ContactEmail != "admin@jgec.ac.in" {
		t.Fatalf("expected default contact email, got %q", cfg.ContactEmail)
	}

	cfg = Normalize(map[string]any{"maintenanceMode": "yes please", "maintenanceEndTime": "soon", "contactEmail": ""}, time.UTC, "admin@jgec.ac.in")
	if cfg.Active || cfg.EstimatedEndTime != nil || cfg.ContactEmail != "admin@jgec.ac.in" {
		t.Fatalf("expected malformed values to read as absent, got %+v", cfg)
	}
}

func TestParseTimeZeroIsAbsent(t *testing.T) {
	if ParseTime(time.Time{}, time.UTC) != nil {
		t.Fatalf("zero time should be absent")
	}
	if ParseTime(" ", time.UTC) != nil {
		t.Fatalf("blank string should be absent")
	}
}
