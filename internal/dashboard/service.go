package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jgechelper/backend/internal/notices"
	"github.com/jgechelper/backend/internal/resources"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
	"github.com/jgechelper/backend/pkg/logger"
	redislib "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	recentPerKind = 3
	recentLimit   = 5

	ActivityResource = "resource"
	ActivityNotice   = "notice"
)

type Stats struct {
	Users     int64 `json:"users"`
	Resources int64 `json:"resources"`
	Notices   int64 `json:"notices"`
}

type Activity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	TimeAgo   string    `json:"time_ago"`
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
	RecentActivity(ctx context.Context) ([]Activity, error)
}

type counter interface {
	Count(ctx context.Context) (int64, error)
}

type resourceStore interface {
	counter
	Recent(ctx context.Context, limit int) ([]resources.Resource, error)
}

type noticeStore interface {
	counter
	Recent(ctx context.Context, limit int) ([]notices.Notice, error)
}

type statsCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

type ServiceParams struct {
	Users     counter
	Resources resourceStore
	Notices   noticeStore
	// Cache is optional; a zero CacheTTL disables it.
	Cache    statsCache
	CacheTTL time.Duration
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	params ServiceParams
}

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil || params.Resources == nil || params.Notices == nil {
		return nil, fmt.Errorf("users, resources and notices stores are required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{params: params}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	key := ""
	if s.cacheEnabled() {
		key = s.params.Cache.CacheKey("dashboard", "stats")
		if cached, ok := s.cachedStats(ctx, key); ok {
			return cached, nil
		}
	}

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Users, err = s.params.Users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Resources, err = s.params.Resources.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Notices, err = s.params.Notices.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count dashboard stats")
	}

	if key != "" {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.params.Cache.Set(ctx, key, raw, s.params.CacheTTL); err != nil {
				s.params.Logger.Warn(ctx, "dashboard.stats_cache_write_failed: "+err.Error())
			}
		}
	}
	return &stats, nil
}

func (s *service) RecentActivity(ctx context.Context) ([]Activity, error) {
	var (
		res []resources.Resource
		nts []notices.Notice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res, err = s.params.Resources.Recent(gctx, recentPerKind)
		return err
	})
	g.Go(func() (err error) {
		nts, err = s.params.Notices.Recent(gctx, recentPerKind)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent activity")
	}

	now := s.params.Now()
	out := make([]Activity, 0, len(res)+len(nts))
	for _, r := range res {
		out = append(out, activity(r.ID, ActivityResource, r.Title, "New Resource", r.CreatedAt, now))
	}
	for _, n := range nts {
		out = append(out, activity(n.ID, ActivityNotice, n.Title, "New Notice", n.CreatedAt, now))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	return out, nil
}

func (s *service) cacheEnabled() bool {
	return s.params.Cache != nil && s.params.CacheTTL > 0
}

func (s *service) cachedStats(ctx context.Context, key string) (*Stats, bool) {
	raw, err := s.params.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			s.params.Logger.Warn(ctx, "dashboard.stats_cache_read_failed: "+err.Error())
		}
		return nil, false
	}
	var stats Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func activity(id, kind, title, fallback string, at, now time.Time) Activity {
	if title == "" {
		title = fallback
	}
	if at.IsZero() {
		at = now
	}
	return Activity{ID: id, Type: kind, Title: title, CreatedAt: at, TimeAgo: RelativeTime(at, now)}
}

// RelativeTime renders the rounded distance from at to now in minutes below
// an hour, hours below a day, and days otherwise.
func RelativeTime(at, now time.Time) string {
	diff := now.Sub(at)
	if diff < 0 {
		diff = 0
	}
	mins := int64(math.Round(diff.Minutes()))
	if mins < 60 {
		return plural(mins, "min")
	}
	hrs := int64(math.Round(diff.Hours()))
	if hrs < 24 {
		return plural(hrs, "hr")
	}
	return plural(int64(math.Round(diff.Hours()/24)), "day")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s ago", n, unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
