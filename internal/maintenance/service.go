package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
)

// Patch is a partial settings update. Nil fields are left unchanged; an
// empty EstimatedEndTime clears it.
type Patch struct {
	Active           *bool   `json:"active"`
	ContactEmail     *string `json:"contact_email" validate:"omitempty,email"`
	EstimatedEndTime *string `json:"estimated_end_time"`
}

// Status is the public view shown on the maintenance screen.
type Status struct {
	Active           bool       `json:"active"`
	ContactEmail     string     `json:"contact_email"`
	EstimatedEndTime *time.Time `json:"estimated_end_time,omitempty"`
}

type Service interface {
	Get(ctx context.Context) (Config, error)
	Update(ctx context.Context, patch Patch) (Config, error)
}

type notifier interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type ServiceParams struct {
	Store        Store
	Notifier     notifier
	Channel      string
	Location     *time.Location
	DefaultEmail string
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	store        Store
	notifier     notifier
	channel      string
	loc          *time.Location
	defaultEmail string
	logg         *logger.Logger
	now          func() time.Time
	validate     *validator.Validate
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:        params.Store,
		notifier:     params.Notifier,
		channel:      params.Channel,
		loc:          loc,
		defaultEmail: params.DefaultEmail,
		logg:         params.Logger,
		now:          now,
		validate:     validator.New(),
	}, nil
}

func (s *service) Get(ctx context.Context) (Config, error) {
	raw, err := s.store.Load(ctx)
	if err != nil {
		return Config{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	return Normalize(raw, s.loc, s.defaultEmail), nil
}

// Update merge-writes patch. Turning maintenance on stamps the start time in
// the same write; turning it off clears it.
func (s *service) Update(ctx context.Context, patch Patch) (Config, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return Config{}, err
	}

	fields := map[string]any{}
	if patch.ContactEmail != nil {
		email := strings.TrimSpace(*patch.ContactEmail)
		if email == "" {
			email = s.defaultEmail
		}
		if err := s.validate.Var(email, "required,email"); err != nil {
			return Config{}, pkgerrors.New(pkgerrors.CodeValidation, "contact email must be a valid email address")
		}
		fields[KeyContactEmail] = email
	}
	if patch.EstimatedEndTime != nil {
		raw := strings.TrimSpace(*patch.EstimatedEndTime)
		if raw == "" {
			fields[KeyEndTime] = nil
		} else {
			end := ParseTime(raw, s.loc)
			if end == nil {
				return Config{}, pkgerrors.New(pkgerrors.CodeValidation, "estimated end time must be RFC3339 or YYYY-MM-DDTHH:MM")
			}
			fields[KeyEndTime] = end.UTC()
		}
	}
	if patch.Active != nil {
		fields[KeyActive] = *patch.Active
		switch {
		case *patch.Active && !current.Active:
			fields[KeyStartedAt] = s.now().UTC()
		case !*patch.Active:
			fields[KeyStartedAt] = nil
		}
	}
	if len(fields) == 0 {
		return current, nil
	}

	if err := s.store.Merge(ctx, fields); err != nil {
		return Config{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update settings")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"fields": len(fields)})
	if patch.Active != nil && *patch.Active != current.Active {
		ctx = s.logg.WithField(ctx, "active", *patch.Active)
	}
	s.logg.Info(ctx, "maintenance.config.updated")

	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, s.channel, "changed"); err != nil {
			// watchers still converge on the next resync
			s.logg.Warn(ctx, "maintenance.notify.failed: "+err.Error())
		}
	}
	return s.Get(ctx)
}

// PublicStatus trims a config to what anonymous visitors may see.
func PublicStatus(cfg Config) Status {
	return Status{
		Active:           cfg.Active,
		ContactEmail:     cfg.ContactEmail,
		EstimatedEndTime: cfg.EstimatedEndTime,
	}
}
