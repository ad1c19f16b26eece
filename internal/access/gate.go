package access

import (
	"strings"
	"time"

	"github.com/jgechelper/backend/internal/identity"
	"github.com/jgechelper/backend/internal/maintenance"
	"github.com/jgechelper/backend/pkg/enums"
)

// Mode is the single render mode chosen for one evaluation.
type Mode string

const (
	ModeLoading        Mode = "loading"
	ModeAuthPending    Mode = "auth_pending"
	ModeAdminBypass    Mode = "admin_bypass"
	ModeLoginException Mode = "login_exception"
	ModeGrandfathered  Mode = "grandfathered_session"
	ModeBlocked        Mode = "maintenance_blocked"
	ModeNormal         Mode = "normal"
)

// ShowsContent reports whether the route's content may be rendered.
func (m Mode) ShowsContent() bool {
	switch m {
	case ModeAdminBypass, ModeLoginException, ModeGrandfathered, ModeNormal:
		return true
	}
	return false
}

const (
	BannerAdminBypass   = "admin_bypass"
	BannerGrandfathered = "grandfathered"
)

type Banner struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var (
	adminBypassBanner = Banner{
		Kind:    BannerAdminBypass,
		Message: "Maintenance mode is active. You are viewing the site through an administrative bypass.",
	}
	grandfatheredBanner = Banner{
		Kind:    BannerGrandfathered,
		Message: "Maintenance is in progress. New visitors are restricted, but your current session may continue.",
	}
)

// Screen is the maintenance page shown to blocked visitors.
type Screen struct {
	ContactEmail     string     `json:"contact_email"`
	EstimatedEndTime *time.Time `json:"estimated_end_time,omitempty"`
	Countdown        *Countdown `json:"countdown,omitempty"`
}

// Decision is an immutable evaluation result.
type Decision struct {
	Mode   Mode    `json:"mode"`
	Banner *Banner `json:"banner,omitempty"`
	Screen *Screen `json:"screen,omitempty"`
}

// Input is everything a decision depends on. A nil Config means not yet
// fetched; a nil Arrival means not yet recorded.
type Input struct {
	Identity     *identity.Identity
	Role         enums.Role
	AuthResolved bool
	Config       *maintenance.Config
	Arrival      *Arrival
	Route        string
}

// Gate chooses render modes. It holds only static configuration.
type Gate struct {
	superAdmins map[string]struct{}
	loginRoute  string
}

func NewGate(superAdminEmails []string, loginRoute string) *Gate {
	admins := make(map[string]struct{}, len(superAdminEmails))
	for _, email := range superAdminEmails {
		if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
			admins[e] = struct{}{}
		}
	}
	if loginRoute == "" {
		loginRoute = "/login"
	}
	return &Gate{superAdmins: admins, loginRoute: loginRoute}
}

// LoginRoute is the sign-in page exempt from blocking.
func (g *Gate) LoginRoute() string {
	return g.loginRoute
}

// Decide applies the rules in priority order; the first match wins.
func (g *Gate) Decide(in Input, now time.Time) Decision {
	if in.Config == nil || in.Arrival == nil {
		return Decision{Mode: ModeLoading}
	}
	cfg := in.Config

	if cfg.Active && !in.AuthResolved {
		return Decision{Mode: ModeAuthPending}
	}

	if in.Role == enums.RoleAdmin || g.isSuperAdmin(in.Identity) {
		d := Decision{Mode: ModeAdminBypass}
		if cfg.Active {
			b := adminBypassBanner
			d.Banner = &b
		}
		return d
	}

	if !cfg.Active {
		return Decision{Mode: ModeNormal}
	}

	if normalizeRoute(in.Route) == g.loginRoute {
		return Decision{Mode: ModeLoginException}
	}

	if cfg.StartedAt == nil || in.Arrival.FirstSeen.Before(*cfg.StartedAt) {
		b := grandfatheredBanner
		return Decision{Mode: ModeGrandfathered, Banner: &b}
	}

	screen := &Screen{ContactEmail: cfg.ContactEmail}
	if cfg.EstimatedEndTime != nil {
		end := *cfg.EstimatedEndTime
		remaining := Remaining(end, now)
		screen.EstimatedEndTime = &end
		screen.Countdown = &remaining
	}
	return Decision{Mode: ModeBlocked, Screen: screen}
}

func (g *Gate) isSuperAdmin(id *identity.Identity) bool {
	if id == nil || len(g.superAdmins) == 0 {
		return false
	}
	_, ok := g.superAdmins[strings.ToLower(strings.TrimSpace(id.Email))]
	return ok
}

func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "/"
	}
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return route
}
