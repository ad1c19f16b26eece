package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed on first request")
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expire for first increment")
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again")
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}
}

func TestPublishUsesNamespacedChannel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Publish(ctx, "settings.general", "changed"); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(mock.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(mock.published))
	}
	if got := mock.published[0]; got != "jgec:channel:settings.general=changed" {
		t.Fatalf("unexpected publish %q", got)
	}
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.CacheKey("dashboard", "stats")
	if err := client.Set(ctx, key, "payload", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.Get(ctx, key)
	if err != nil || got != "payload" {
		t.Fatalf("expected cached payload, got %q err=%v", got, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error on empty client")
	}
	if _, err := client.Subscribe(context.Background(), "x"); err == nil {
		t.Fatalf("expected subscribe error on empty client")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.RateLimitKey("scope"); got != "jgec:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.AccessSessionKey("abc"); got != "jgec:session:access:abc" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.CacheKey("dashboard", "", "stats"); got != "jgec:cache:dashboard:stats" {
		t.Fatalf("cache key should skip empty parts, got %s", got)
	}
}

type countingCloser struct {
	closes int
}

func (c *countingCloser) Close() error {
	c.closes++
	return nil
}

func TestSubscriptionCloseReleasesFullBuffer(t *testing.T) {
	in := make(chan *redis.Message, 16)
	for i := 0; i < cap(in); i++ {
		in <- &redis.Message{Payload: fmt.Sprint(i)}
	}
	closer := &countingCloser{}
	sub := pumpSubscription(in, closer)

	// wait for the pump to fill the buffer and block on the next send
	deadline := time.Now().Add(time.Second)
	for len(sub.out) < cap(sub.out) {
		if time.Now().After(deadline) {
			t.Fatalf("buffer never filled, got %d", len(sub.out))
		}
		time.Sleep(time.Millisecond)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if closer.closes != 2 {
		t.Fatalf("expected closer to be called on each Close, got %d", closer.closes)
	}

	drained := make(chan int)
	go func() {
		n := 0
		for range sub.Messages() {
			n++
		}
		drained <- n
	}()
	select {
	case n := <-drained:
		if n > cap(in) {
			t.Fatalf("received more messages than sent: %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("messages channel was not closed after Close")
	}
}

func TestSubscriptionEndsWhenSourceCloses(t *testing.T) {
	in := make(chan *redis.Message, 1)
	in <- &redis.Message{Payload: "reload"}
	close(in)
	sub := pumpSubscription(in, &countingCloser{})

	var got []string
	for payload := range sub.Messages() {
		got = append(got, payload)
	}
	if len(got) != 1 || got[0] != "reload" {
		t.Fatalf("unexpected payloads %v", got)
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
	published   []string
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	m.published = append(m.published, fmt.Sprintf("%s=%v", channel, message))
	return redis.NewIntResult(1, nil)
}
