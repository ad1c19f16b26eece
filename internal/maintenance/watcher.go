package maintenance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jgechelper/backend/pkg/logger"
	"github.com/jgechelper/backend/pkg/metrics"
)

const (
	minRetryDelay = time.Second
	maxRetryDelay = 30 * time.Second
)

// WatcherParams configures NewWatcher.
type WatcherParams struct {
	Source       Source
	Location     *time.Location
	DefaultEmail string
	LoadTimeout  time.Duration
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

// Watcher keeps the latest normalized config and fans it out to subscribers.
// Until the first snapshot arrives (or LoadTimeout passes) Current is nil.
type Watcher struct {
	source       Source
	loc          *time.Location
	defaultEmail string
	loadTimeout  time.Duration
	logg         *logger.Logger
	metrics      *metrics.Metrics

	current atomic.Pointer[Config]

	mu     sync.Mutex
	subs   map[int]chan Config
	nextID int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(params WatcherParams) (*Watcher, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("maintenance source is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Watcher{
		source:       params.Source,
		loc:          loc,
		defaultEmail: params.DefaultEmail,
		loadTimeout:  params.LoadTimeout,
		logg:         params.Logger,
		metrics:      params.Metrics,
		subs:         map[int]chan Config{},
	}, nil
}

// Start begins watching in the background. Call Close to stop.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	ctx = w.logg.WithComponent(ctx, "maintenance.watcher")

	if w.loadTimeout > 0 {
		timer := time.AfterFunc(w.loadTimeout, func() {
			if w.current.Load() != nil {
				return
			}
			w.logg.Warn(ctx, "maintenance.watch.timeout")
			w.metrics.IncConfigEvent("timeout")
			w.publish(Inactive(w.defaultEmail), true)
		})
		go func() {
			<-ctx.Done()
			timer.Stop()
		}()
	}

	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	delay := minRetryDelay
	for {
		err := w.source.Watch(ctx, func(raw map[string]any) {
			delay = minRetryDelay
			w.metrics.IncConfigEvent("snapshot")
			w.publish(Normalize(raw, w.loc, w.defaultEmail), false)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.metrics.IncConfigEvent("error")
			w.logg.Error(ctx, "maintenance.watch.failed", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// publish swaps in cfg and notifies subscribers. onlyIfEmpty guards the
// fail-open default against overwriting a real snapshot.
func (w *Watcher) publish(cfg Config, onlyIfEmpty bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if onlyIfEmpty && w.current.Load() != nil {
		return
	}
	snapshot := cfg
	w.current.Store(&snapshot)
	for _, ch := range w.subs {
		offer(ch, snapshot)
	}
}

// offer replaces any undelivered value so a slow subscriber only sees the latest.
func offer(ch chan Config, cfg Config) {
	select {
	case ch <- cfg:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- cfg:
	default:
	}
}

// Current returns the latest snapshot, or nil while still loading.
func (w *Watcher) Current() *Config {
	cfg := w.current.Load()
	if cfg == nil {
		return nil
	}
	cp := *cfg
	return &cp
}

// Subscribe returns a channel of snapshots, primed with the current one,
// and a function that releases it.
func (w *Watcher) Subscribe() (<-chan Config, func()) {
	ch := make(chan Config, 1)
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	if cfg := w.current.Load(); cfg != nil {
		ch <- *cfg
	}
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

// Close stops the watch loop and waits for it to exit.
func (w *Watcher) Close() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	return nil
}
