package syncgw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniRemote(t *testing.T) *RedisRemote {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRemote(client)
}

func TestRedisRemoteUpsertGet(t *testing.T) {
	remote := newMiniRemote(t)

	if err := remote.Upsert(context.Background(), "stats", "user-1", []byte(`{"total_points":7}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	raw, err := remote.Get(context.Background(), "stats", "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(raw) != `{"total_points":7}` {
		t.Fatalf("unexpected document: %s", raw)
	}
}

func TestRedisRemoteGetMissing(t *testing.T) {
	remote := newMiniRemote(t)

	_, err := remote.Get(context.Background(), "stats", "nobody")
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected no-document error, got %v", err)
	}
}

func TestRedisRemoteListenDeliversCurrentAndChanges(t *testing.T) {
	remote := newMiniRemote(t)

	if err := remote.Upsert(context.Background(), "stats", "user-1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	docs := make(chan []byte, 8)
	cancel, err := remote.Listen("stats", "user-1",
		func(raw []byte) { docs <- raw },
		func(err error) { t.Errorf("unexpected error: %v", err) })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer cancel()

	select {
	case raw := <-docs:
		if string(raw) != `{"v":1}` {
			t.Fatalf("unexpected initial document: %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for initial document")
	}

	if err := remote.Upsert(context.Background(), "stats", "user-1", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	select {
	case raw := <-docs:
		if string(raw) != `{"v":2}` {
			t.Fatalf("unexpected change document: %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for change")
	}
}

func TestRedisRemoteListenSkipsStaleChange(t *testing.T) {
	remote := newMiniRemote(t)

	newer := []byte(`{"total_points":9,"updated_at":"2026-08-31T12:00:00Z"}`)
	older := []byte(`{"total_points":3,"updated_at":"2026-08-31T11:00:00Z"}`)

	if err := remote.Upsert(context.Background(), "stats", "user-1", newer); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	docs := make(chan []byte, 8)
	cancel, err := remote.Listen("stats", "user-1",
		func(raw []byte) { docs <- raw },
		func(err error) { t.Errorf("unexpected error: %v", err) })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer cancel()

	select {
	case raw := <-docs:
		if string(raw) != string(newer) {
			t.Fatalf("unexpected initial document: %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for initial document")
	}

	// a change that was queued behind the initial Get carries an older
	// timestamp and must not reach the listener
	if err := remote.client.Publish(context.Background(), changeChannel("stats", "user-1"), older).Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case raw := <-docs:
		t.Fatalf("stale document delivered: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisRemoteListenCancelStopsDelivery(t *testing.T) {
	remote := newMiniRemote(t)

	docs := make(chan []byte, 8)
	cancel, err := remote.Listen("ranking", "user-1",
		func(raw []byte) { docs <- raw },
		func(error) {})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cancel()
	time.Sleep(20 * time.Millisecond)

	if err := remote.Upsert(context.Background(), "ranking", "user-1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	select {
	case raw := <-docs:
		t.Fatalf("unexpected delivery after cancel: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}
