package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jgechelper/backend/internal/access"
	"github.com/jgechelper/backend/internal/maintenance"
	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
)

type fixedConfig struct {
	cfg *maintenance.Config
}

func (f fixedConfig) Current() *maintenance.Config { return f.cfg }

func TestMaintenanceGate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-time.Hour)
	end := now.Add(90 * time.Second)
	active := &maintenance.Config{Active: true, ContactEmail: "admin@jgec.ac.in", StartedAt: &started, EstimatedEndTime: &end}
	inactive := &maintenance.Config{ContactEmail: "admin@jgec.ac.in"}

	arrivedBefore := strconv.FormatInt(started.Add(-time.Minute).UnixMilli(), 10)
	arrivedAfter := strconv.FormatInt(started.Add(time.Minute).UnixMilli(), 10)

	cases := []struct {
		name       string
		cfg        *maintenance.Config
		arrival    string
		role       enums.Role
		route      string
		routeQuery string
		arrivalHdr string
		wantStatus int
		wantCode   string
		wantBanner string
		wantRetry  string
	}{
		{name: "loading", cfg: nil, arrival: arrivedAfter, wantStatus: http.StatusServiceUnavailable, wantCode: string(pkgerrors.CodeLoading), wantRetry: "1"},
		{name: "inactive", cfg: inactive, arrival: arrivedAfter, wantStatus: http.StatusOK},
		{name: "blocked", cfg: active, arrival: arrivedAfter, wantStatus: http.StatusServiceUnavailable, wantCode: string(pkgerrors.CodeMaintenance), wantRetry: "90"},
		{name: "grandfathered", cfg: active, arrival: arrivedBefore, wantStatus: http.StatusOK, wantBanner: access.BannerGrandfathered},
		{name: "admin", cfg: active, arrival: arrivedAfter, role: enums.RoleAdmin, wantStatus: http.StatusOK, wantBanner: access.BannerAdminBypass},
		{name: "login route header ignored", cfg: active, arrival: arrivedAfter, route: "/login", wantStatus: http.StatusServiceUnavailable, wantCode: string(pkgerrors.CodeMaintenance)},
		{name: "login route query ignored", cfg: active, routeQuery: "/login", wantStatus: http.StatusServiceUnavailable, wantCode: string(pkgerrors.CodeMaintenance)},
		{name: "arrival header ignored", cfg: active, arrivalHdr: "1", wantStatus: http.StatusServiceUnavailable, wantCode: string(pkgerrors.CodeMaintenance)},
		{name: "fresh visitor blocked", cfg: active, wantStatus: http.StatusServiceUnavailable, wantCode: string(pkgerrors.CodeMaintenance)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			arrivals := access.NewArrivalStore("arrival_time", time.Hour, false)
			handler := Maintenance(MaintenanceParams{
				Gate:     access.NewGate(nil, "/login"),
				Configs:  fixedConfig{cfg: tc.cfg},
				Arrivals: arrivals,
				Now:      func() time.Time { return now },
			})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			target := "/api/public/v1/resources"
			if tc.routeQuery != "" {
				target += "?route=" + tc.routeQuery
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.arrivalHdr != "" {
				req.Header.Set(access.ArrivalHeader, tc.arrivalHdr)
			}
			if tc.arrival != "" {
				req.AddCookie(&http.Cookie{Name: "arrival_time", Value: tc.arrival})
			}
			if tc.route != "" {
				req.Header.Set(ClientRouteHeader, tc.route)
			}
			if tc.role != "" {
				req = req.WithContext(WithRole(req.Context(), tc.role))
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			if resp.Code != tc.wantStatus {
				t.Fatalf("expected %d got %d", tc.wantStatus, resp.Code)
			}
			if got := resp.Header().Get(maintenanceBannerHeader); got != tc.wantBanner {
				t.Fatalf("expected banner %q got %q", tc.wantBanner, got)
			}
			if tc.wantRetry != "" && resp.Header().Get("Retry-After") != tc.wantRetry {
				t.Fatalf("expected Retry-After %q got %q", tc.wantRetry, resp.Header().Get("Retry-After"))
			}
			if tc.wantCode != "" {
				var payload struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if payload.Error.Code != tc.wantCode {
					t.Fatalf("expected code %s got %s", tc.wantCode, payload.Error.Code)
				}
			}
		})
	}
}

func TestMaintenanceSetsArrivalCookieOnFirstVisit(t *testing.T) {
	handler := Maintenance(MaintenanceParams{
		Gate:     access.NewGate(nil, "/login"),
		Configs:  fixedConfig{cfg: &maintenance.Config{}},
		Arrivals: access.NewArrivalStore("arrival_time", time.Hour, false),
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	found := false
	for _, c := range resp.Result().Cookies() {
		if c.Name == "arrival_time" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected arrival cookie to be set")
	}
}
