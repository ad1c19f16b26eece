package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jgechelper/backend/api/middleware"
	"github.com/jgechelper/backend/api/responses"
	"github.com/jgechelper/backend/internal/access"
	"github.com/jgechelper/backend/internal/identity"
	"github.com/jgechelper/backend/internal/maintenance"
	pkgAuth "github.com/jgechelper/backend/pkg/auth"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/metrics"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamReadLimit  = 4096
)

type maintenanceFeed interface {
	Current() *maintenance.Config
	Subscribe() (<-chan maintenance.Config, func())
}

// TokenVerifier validates an app access token sent over the access stream.
type TokenVerifier func(ctx context.Context, token string) (*pkgAuth.AccessTokenClaims, error)

// AccessDeps bundles what the access endpoints evaluate against.
type AccessDeps struct {
	Gate     *access.Gate
	Configs  maintenanceFeed
	Arrivals *access.ArrivalStore
	Verify   TokenVerifier
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Upgrader websocket.Upgrader
	Now      func() time.Time
}

func (d AccessDeps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// AccessDecision returns one gate decision for the calling client. The
// arrival marker is initialized before the maintenance snapshot is read.
func AccessDecision(deps AccessDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Gate == nil || deps.Configs == nil || deps.Arrivals == nil {
			responses.WriteError(r.Context(), deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "access gate unavailable"))
			return
		}
		arrival := deps.Arrivals.EnsureReported(w.Header(), r)
		decision := deps.Gate.Decide(middleware.GateInput(r, arrival, deps.Configs.Current(), middleware.ClientRoute(r)), deps.now())
		deps.Metrics.IncDecision(string(decision.Mode))
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, decision)
	}
}

type streamMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	Route string `json:"route,omitempty"`
}

type streamFrame struct {
	Type     string          `json:"type"`
	Decision access.Decision `json:"decision"`
}

// AccessStream upgrades to a websocket and pushes a decision every time the
// caller's identity, the maintenance config, or the route changes.
func AccessStream(deps AccessDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Gate == nil || deps.Configs == nil || deps.Arrivals == nil {
			responses.WriteError(r.Context(), deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "access gate unavailable"))
			return
		}

		header := http.Header{}
		arrival := deps.Arrivals.EnsureReported(header, r)
		conn, err := deps.Upgrader.Upgrade(w, r, header)
		if err != nil {
			// Upgrade already replied with an HTTP error
			if deps.Logger != nil {
				deps.Logger.Warn(r.Context(), "access.stream.upgrade_failed: "+err.Error())
			}
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		authStates := make(chan access.AuthState, 1)
		routes := make(chan string, 1)
		session, err := access.NewSession(access.SessionParams{
			Gate:         deps.Gate,
			Configs:      deps.Configs,
			Arrival:      arrival,
			InitialAuth:  authFromContext(ctx),
			InitialRoute: middleware.ClientRoute(r),
			Auth:         authStates,
			Routes:       routes,
			Metrics:      deps.Metrics,
			Now:          deps.Now,
		})
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "access gate unavailable"), time.Now().Add(streamWriteWait))
			return
		}

		go readStream(ctx, cancel, conn, deps, authStates, routes)

		decisions := session.Run(ctx)
		ping := time.NewTicker(streamPingPeriod)
		defer ping.Stop()
		for {
			select {
			case d, ok := <-decisions:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteJSON(streamFrame{Type: "decision", Decision: d}); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

// readStream turns client messages into pushed sources and cancels ctx when
// the peer goes away.
func readStream(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, deps AccessDeps, authStates chan<- access.AuthState, routes chan<- string) {
	defer cancel()
	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch strings.ToLower(msg.Type) {
		case "identity":
			if !push(ctx, authStates, access.AuthState{}) {
				return
			}
			if !push(ctx, authStates, verifyStreamToken(ctx, deps, msg.Token)) {
				return
			}
		case "signout":
			if !push(ctx, authStates, access.AuthState{Resolved: true}) {
				return
			}
		case "route":
			if !push(ctx, routes, msg.Route) {
				return
			}
		}
	}
}

// verifyStreamToken resolves a token to an auth state. Invalid or revoked
// tokens settle as signed out.
func verifyStreamToken(ctx context.Context, deps AccessDeps, token string) access.AuthState {
	if deps.Verify == nil || strings.TrimSpace(token) == "" {
		return access.AuthState{Resolved: true}
	}
	claims, err := deps.Verify(ctx, token)
	if err != nil {
		if deps.Logger != nil && pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			deps.Logger.Warn(ctx, "access.stream.verify_failed: "+err.Error())
		}
		return access.AuthState{Resolved: true}
	}
	return access.AuthState{
		Identity: &identity.Identity{UID: claims.UserID, Email: claims.Email},
		Role:     claims.Role,
		Resolved: true,
	}
}

func authFromContext(ctx context.Context) access.AuthState {
	state := access.AuthState{Resolved: true, Role: middleware.RoleFromContext(ctx)}
	if uid := middleware.UserIDFromContext(ctx); uid != "" {
		state.Identity = &identity.Identity{UID: uid, Email: middleware.EmailFromContext(ctx)}
	}
	return state
}

func push[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
