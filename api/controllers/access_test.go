package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jgechelper/backend/api/middleware"
	"github.com/jgechelper/backend/internal/access"
	"github.com/jgechelper/backend/internal/maintenance"
	pkgAuth "github.com/jgechelper/backend/pkg/auth"
	"github.com/jgechelper/backend/pkg/enums"
)

type stubFeed struct {
	current *maintenance.Config
	ch      chan maintenance.Config
}

func newStubFeed(cfg *maintenance.Config) *stubFeed {
	f := &stubFeed{current: cfg, ch: make(chan maintenance.Config, 4)}
	if cfg != nil {
		f.ch <- *cfg
	}
	return f
}

func (f *stubFeed) Current() *maintenance.Config { return f.current }

func (f *stubFeed) Subscribe() (<-chan maintenance.Config, func()) {
	return f.ch, func() {}
}

func activeConfig(started time.Time) *maintenance.Config {
	return &maintenance.Config{Active: true, ContactEmail: "admin@jgec.ac.in", StartedAt: &started}
}

func TestAccessDecisionForGrandfatheredVisitor(t *testing.T) {
	started := time.Now().Add(-time.Hour)
	deps := AccessDeps{
		Gate:     access.NewGate(nil, "/login"),
		Configs:  newStubFeed(activeConfig(started)),
		Arrivals: access.NewArrivalStore("arrival_time", time.Hour, false),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/v1/access?route=/resources", nil)
	req.AddCookie(&http.Cookie{Name: "arrival_time", Value: strconv.FormatInt(started.Add(-time.Minute).UnixMilli(), 10)})
	resp := httptest.NewRecorder()
	AccessDecision(deps).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data access.Decision `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Mode != access.ModeGrandfathered {
		t.Fatalf("expected grandfathered got %s", envelope.Data.Mode)
	}
	if envelope.Data.Banner == nil || envelope.Data.Banner.Kind != access.BannerGrandfathered {
		t.Fatalf("expected grandfathered banner, got %+v", envelope.Data.Banner)
	}
}

func TestAccessDecisionHonorsRouteAndArrivalHeader(t *testing.T) {
	started := time.Now().Add(-time.Hour)
	deps := AccessDeps{
		Gate:     access.NewGate(nil, "/login"),
		Configs:  newStubFeed(activeConfig(started)),
		Arrivals: access.NewArrivalStore("arrival_time", time.Hour, false),
	}

	decide := func(req *http.Request) access.Mode {
		resp := httptest.NewRecorder()
		AccessDecision(deps).ServeHTTP(resp, req)
		var envelope struct {
			Data access.Decision `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return envelope.Data.Mode
	}

	if mode := decide(httptest.NewRequest(http.MethodGet, "/api/public/v1/access?route=/login", nil)); mode != access.ModeLoginException {
		t.Fatalf("expected login exception got %s", mode)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/v1/access?route=/resources", nil)
	req.Header.Set(access.ArrivalHeader, strconv.FormatInt(started.Add(-time.Minute).UnixMilli(), 10))
	if mode := decide(req); mode != access.ModeGrandfathered {
		t.Fatalf("expected grandfathered got %s", mode)
	}
}

func TestAccessDecisionLoadingUntilFirstSnapshot(t *testing.T) {
	deps := AccessDeps{
		Gate:     access.NewGate(nil, "/login"),
		Configs:  newStubFeed(nil),
		Arrivals: access.NewArrivalStore("arrival_time", time.Hour, false),
	}
	resp := httptest.NewRecorder()
	AccessDecision(deps).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/public/v1/access", nil))

	var envelope struct {
		Data access.Decision `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Mode != access.ModeLoading {
		t.Fatalf("expected loading got %s", envelope.Data.Mode)
	}
	if len(resp.Result().Cookies()) == 0 {
		t.Fatal("expected arrival cookie on first visit")
	}
}

func TestAccessStreamFollowsIdentityAndRoute(t *testing.T) {
	started := time.Now().Add(-time.Hour)
	deps := AccessDeps{
		Gate:     access.NewGate(nil, "/login"),
		Configs:  newStubFeed(activeConfig(started)),
		Arrivals: access.NewArrivalStore("arrival_time", time.Hour, false),
		Verify: func(ctx context.Context, token string) (*pkgAuth.AccessTokenClaims, error) {
			return &pkgAuth.AccessTokenClaims{UserID: "uid-1", Email: "admin@jgec.ac.in", Role: enums.RoleAdmin}, nil
		},
	}
	srv := httptest.NewServer(middleware.OptionalAuth(testJWT, allowSessions{}, nil)(AccessStream(deps)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?route=/resources"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if len(resp.Cookies()) == 0 {
		t.Fatal("expected arrival cookie on upgrade")
	}

	waitFor(t, conn, access.ModeBlocked)

	if err := conn.WriteJSON(map[string]string{"type": "route", "route": "/login"}); err != nil {
		t.Fatalf("write route: %v", err)
	}
	waitFor(t, conn, access.ModeLoginException)

	if err := conn.WriteJSON(map[string]string{"type": "identity", "token": "tok"}); err != nil {
		t.Fatalf("write identity: %v", err)
	}
	d := waitFor(t, conn, access.ModeAdminBypass)
	if d.Banner == nil || d.Banner.Kind != access.BannerAdminBypass {
		t.Fatalf("expected admin banner, got %+v", d.Banner)
	}

	if err := conn.WriteJSON(map[string]string{"type": "signout"}); err != nil {
		t.Fatalf("write signout: %v", err)
	}
	waitFor(t, conn, access.ModeLoginException)
}

// waitFor reads frames until one carries mode. Intermediate frames such as
// loading or auth_pending are skipped.
func waitFor(t *testing.T, conn *websocket.Conn, mode access.Mode) access.Decision {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var frame streamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %s: %v", mode, err)
		}
		if frame.Decision.Mode == mode {
			return frame.Decision
		}
	}
}
