package access

import (
	"context"
	"errors"
	"time"

	"github.com/jgechelper/backend/internal/identity"
	"github.com/jgechelper/backend/internal/maintenance"
	"github.com/jgechelper/backend/pkg/enums"
	"github.com/jgechelper/backend/pkg/metrics"
)

// AuthState is one pushed identity/role resolution.
type AuthState struct {
	Identity *identity.Identity
	Role     enums.Role
	Resolved bool
}

type configFeed interface {
	Subscribe() (<-chan maintenance.Config, func())
}

// SessionParams wires the pushed sources of one client session.
type SessionParams struct {
	Gate    *Gate
	Configs configFeed
	// Arrival must be captured before the first config read.
	Arrival      Arrival
	InitialAuth  AuthState
	InitialRoute string
	Auth         <-chan AuthState
	Routes       <-chan string
	TickInterval time.Duration
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Session re-runs the gate whenever any source changes and publishes each
// distinct decision.
type Session struct {
	params SessionParams
}

func NewSession(params SessionParams) (*Session, error) {
	if params.Gate == nil {
		return nil, errors.New("gate is required")
	}
	if params.Configs == nil {
		return nil, errors.New("config feed is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.TickInterval <= 0 {
		params.TickInterval = time.Second
	}
	return &Session{params: params}, nil
}

// Run evaluates until ctx ends, then releases every subscription and closes
// the returned channel.
func (s *Session) Run(ctx context.Context) <-chan Decision {
	out := make(chan Decision, 1)
	configs, unsubscribe := s.params.Configs.Subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		arrival := s.params.Arrival
		in := Input{
			Identity:     s.params.InitialAuth.Identity,
			Role:         s.params.InitialAuth.Role,
			AuthResolved: s.params.InitialAuth.Resolved,
			Arrival:      &arrival,
			Route:        s.params.InitialRoute,
		}
		auth, routes := s.params.Auth, s.params.Routes

		var (
			last       *Decision
			countdown  <-chan Countdown
			stopTicker context.CancelFunc = func() {}
			tickingFor *time.Time
		)
		defer func() { stopTicker() }()

		emit := func() bool {
			d := s.params.Gate.Decide(in, s.params.Now())

			end := countdownEnd(d)
			switch {
			case end == nil && tickingFor != nil:
				stopTicker()
				countdown, tickingFor = nil, nil
			case end != nil && (tickingFor == nil || !tickingFor.Equal(*end)):
				stopTicker()
				tickCtx, cancel := context.WithCancel(ctx)
				stopTicker = cancel
				countdown = Ticker(tickCtx, *end, s.params.TickInterval, s.params.Now)
				tickingFor = end
			}

			if last != nil && sameDecision(*last, d) {
				return true
			}
			s.params.Metrics.IncDecision(string(d.Mode))
			select {
			case out <- d:
			case <-ctx.Done():
				return false
			}
			last = &d
			return true
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case cfg := <-configs:
				c := cfg
				in.Config = &c
			case st, ok := <-auth:
				if !ok {
					auth = nil
					continue
				}
				in.Identity, in.Role, in.AuthResolved = st.Identity, st.Role, st.Resolved
			case route, ok := <-routes:
				if !ok {
					routes = nil
					continue
				}
				in.Route = route
			case _, ok := <-countdown:
				if !ok {
					countdown = nil
					continue
				}
			}
			if !emit() {
				return
			}
		}
	}()
	return out
}

// countdownEnd returns the deadline a blocked decision is still counting to.
func countdownEnd(d Decision) *time.Time {
	if d.Mode != ModeBlocked || d.Screen == nil || d.Screen.Countdown == nil || d.Screen.Countdown.Complete {
		return nil
	}
	return d.Screen.EstimatedEndTime
}

func sameDecision(a, b Decision) bool {
	if a.Mode != b.Mode {
		return false
	}
	if (a.Banner == nil) != (b.Banner == nil) || (a.Banner != nil && *a.Banner != *b.Banner) {
		return false
	}
	if (a.Screen == nil) != (b.Screen == nil) {
		return false
	}
	if a.Screen == nil {
		return true
	}
	if a.Screen.ContactEmail != b.Screen.ContactEmail {
		return false
	}
	if !sameTime(a.Screen.EstimatedEndTime, b.Screen.EstimatedEndTime) {
		return false
	}
	if (a.Screen.Countdown == nil) != (b.Screen.Countdown == nil) {
		return false
	}
	return a.Screen.Countdown == nil || *a.Screen.Countdown == *b.Screen.Countdown
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
