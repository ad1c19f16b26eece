package maintenance

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/jgechelper/backend/pkg/errors"
)

type recordingNotifier struct {
	topics []string
}

func (n *recordingNotifier) Publish(ctx context.Context, topic string, payload any) error {
	n.topics = append(n.topics, topic)
	return nil
}

var serviceNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store Store, n notifier) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:        store,
		Notifier:     n,
		Channel:      "settings.general",
		DefaultEmail: "admin@jgec.ac.in",
		Logger:       testLogger(),
		Now:          func() time.Time { return serviceNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func boolPtr(v bool) *bool { return &v }
func strPtr(v string) *string { return &v }

func TestUpdateActivationStampsStartedAt(t *testing.T) {
	store := &memStore{}
	n := &recordingNotifier{}
	svc := newTestService(t, store, n)

	cfg, err := svc.Update(context.Background(), Patch{Active: boolPtr(true), EstimatedEndTime: strPtr("2025-03-01T18:00")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !cfg.Active || cfg.StartedAt == nil || !cfg.StartedAt.Equal(serviceNow) {
		t.Fatalf("expected startedAt stamped at activation, got %+v", cfg)
	}
	if cfg.EstimatedEndTime == nil {
		t.Fatalf("expected end time")
	}
	if len(n.topics) != 1 || n.topics[0] != "settings.general" {
		t.Fatalf("expected change notification, got %v", n.topics)
	}
}

func TestUpdateWhileActiveKeepsStartedAt(t *testing.T) {
	earlier := serviceNow.Add(-time.Hour)
	store := &memStore{data: map[string]any{KeyActive: true, KeyStartedAt: earlier}}
	svc := newTestService(t, store, nil)

	cfg, err := svc.Update(context.Background(), Patch{Active: boolPtr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cfg.StartedAt == nil || !cfg.StartedAt.Equal(earlier) {
		t.Fatalf("expected original start to survive, got %v", cfg.StartedAt)
	}
}

func TestUpdateDeactivationClearsStartedAt(t *testing.T) {
	store := &memStore{data: map[string]any{KeyActive: true, KeyStartedAt: serviceNow}}
	svc := newTestService(t, store, nil)

	cfg, err := svc.Update(context.Background(), Patch{Active: boolPtr(false), EstimatedEndTime: strPtr("")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cfg.Active || cfg.StartedAt != nil || cfg.EstimatedEndTime != nil {
		t.Fatalf("expected cleared config, got %+v", cfg)
	}
}

func TestUpdateValidatesInput(t *testing.T) {
	svc := newTestService(t, &memStore{}, nil)

	if _, err := svc.Update(context.Background(), Patch{ContactEmail: strPtr("not-an-email")}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for email, got %v", err)
	}
	if _, err := svc.Update(context.Background(), Patch{EstimatedEndTime: strPtr("tomorrow")}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for end time, got %v", err)
	}

	cfg, err := svc.Update(context.Background(), Patch{ContactEmail: strPtr(" ")})
	if err != nil || cfg.ContactEmail != "admin@jgec.ac.in" {
		t.Fatalf("expected blank email to reset to default, got %+v err=%v", cfg, err)
	}
}

func TestPublicStatusHidesStartedAt(t *testing.T) {
	status := PublicStatus(Config{Active: true, ContactEmail: "a@b.c", StartedAt: &serviceNow})
	if !status.Active || status.ContactEmail != "a@b.c" {
		t.Fatalf("unexpected status %+v", status)
	}
}
