package syncgw

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRemote stores documents as JSON strings and signals changes over
// pubsub, one channel per (collection, key).
type RedisRemote struct {
	client *redis.Client
}

func NewRedisRemote(client *redis.Client) *RedisRemote {
	return &RedisRemote{client: client}
}

func (r *RedisRemote) Upsert(ctx context.Context, collection, key string, doc []byte) error {
	docKey := remoteKey(collection, key)
	if err := r.client.Set(ctx, docKey, doc, 0).Err(); err != nil {
		return err
	}
	return r.client.Publish(ctx, changeChannel(collection, key), doc).Err()
}

func (r *RedisRemote) Get(ctx context.Context, collection, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, remoteKey(collection, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *RedisRemote) Listen(collection, key string, onChange func([]byte), onError func(error)) (func(), error) {
	ctx := context.Background()
	pubsub := r.client.Subscribe(ctx, changeChannel(collection, key))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	go func() {
		// a change published between Subscribe and the initial Get can
		// sit queued behind a newer document; the timestamp guard keeps
		// delivery monotonic per listener
		var lastUpdated time.Time
		deliver := func(doc []byte) {
			var stamp struct {
				UpdatedAt time.Time `json:"updated_at"`
			}
			if err := json.Unmarshal(doc, &stamp); err == nil && !stamp.UpdatedAt.IsZero() {
				if stamp.UpdatedAt.Before(lastUpdated) {
					return
				}
				lastUpdated = stamp.UpdatedAt
			}
			onChange(doc)
		}

		if doc, err := r.Get(ctx, collection, key); err == nil {
			deliver(doc)
		} else if !errors.Is(err, ErrNoDocument) {
			onError(err)
		}
		for msg := range pubsub.Channel() {
			deliver([]byte(msg.Payload))
		}
	}()

	return func() { _ = pubsub.Close() }, nil
}

func remoteKey(collection, key string) string {
	return "remote:" + collection + ":" + key
}

func changeChannel(collection, key string) string {
	return remoteKey(collection, key) + ":changed"
}
