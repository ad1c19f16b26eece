package maintenance

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	redisclient "github.com/jgechelper/backend/pkg/redis"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Source pushes raw settings documents to fn until ctx ends or the
// subscription fails. A nil error return means ctx ended.
type Source interface {
	Watch(ctx context.Context, fn func(raw map[string]any)) error
}

// FirestoreSource listens to settings/general snapshots.
type FirestoreSource struct {
	client *firestore.Client
}

func NewFirestoreSource(client *firestore.Client) *FirestoreSource {
	return &FirestoreSource{client: client}
}

func (s *FirestoreSource) Watch(ctx context.Context, fn func(raw map[string]any)) error {
	it := s.client.Collection(settingsCollection).Doc(settingsDocID).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return err
		}
		if !snap.Exists() {
			fn(map[string]any{})
			continue
		}
		fn(snap.Data())
	}
}

type subscriber interface {
	Subscribe(ctx context.Context, topic string) (redisclient.Subscription, error)
}

// NotifyingSource reloads the document from a Store on every change
// notification and on a fixed resync interval.
type NotifyingSource struct {
	store   Store
	sub     subscriber
	channel string
	resync  time.Duration
}

func NewNotifyingSource(store Store, sub subscriber, channel string, resync time.Duration) *NotifyingSource {
	return &NotifyingSource{store: store, sub: sub, channel: channel, resync: resync}
}

func (s *NotifyingSource) Watch(ctx context.Context, fn func(raw map[string]any)) error {
	if s.store == nil {
		return errors.New("settings store is required")
	}

	var notifications <-chan string
	if s.sub != nil {
		subscription, err := s.sub.Subscribe(ctx, s.channel)
		if err != nil {
			return err
		}
		defer subscription.Close()
		notifications = subscription.Messages()
	}

	// subscribe first so a write between the read and the subscribe is not lost
	if err := s.reload(ctx, fn); err != nil {
		return err
	}

	var tick <-chan time.Time
	if s.resync > 0 {
		ticker := time.NewTicker(s.resync)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-notifications:
			if !ok {
				return errors.New("settings notification channel closed")
			}
			if err := s.reload(ctx, fn); err != nil {
				return err
			}
		case <-tick:
			if err := s.reload(ctx, fn); err != nil {
				return err
			}
		}
	}
}

func (s *NotifyingSource) reload(ctx context.Context, fn func(raw map[string]any)) error {
	raw, err := s.store.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	fn(raw)
	return nil
}
