package syncgw

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Category names one remote document collection.
type Category string

const (
	CategoryStats   Category = "stats"
	CategoryRanking Category = "ranking"
	CategoryProfile Category = "profile"
)

// ErrNoDocument reports a Get against a key with no remote document.
var ErrNoDocument = errors.New("no remote document")

// ErrUnknownCategory reports a subscribe against a collection the
// gateway does not know.
var ErrUnknownCategory = errors.New("unknown category")

// TransientRemoteError wraps a network or remote-store failure. It is
// reported to the caller and never retried internally; local state is
// unaffected.
type TransientRemoteError struct {
	Op  string
	Err error
}

func (e *TransientRemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *TransientRemoteError) Unwrap() error { return e.Err }

// RemoteStore is the document-oriented synchronization backend. Each
// collection holds one document per owner id. Listen delivers the
// current document, if any, followed by every subsequent change, until
// the returned cancel function is called.
type RemoteStore interface {
	Upsert(ctx context.Context, collection, key string, doc []byte) error
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Listen(collection, key string, onChange func([]byte), onError func(error)) (cancel func(), err error)
}

// RemoteDocument is the wire record shared by the stats, ranking and
// profile collections: owner identity plus numeric aggregates. Unknown
// fields are ignored on read.
type RemoteDocument struct {
	UserID              string    `json:"user_id"`
	Username            string    `json:"username"`
	FullName            string    `json:"full_name,omitempty"`
	AvatarURL           string    `json:"avatar_url,omitempty"`
	TotalPoints         int       `json:"total_points"`
	TotalDistanceM      float64   `json:"total_distance_m"`
	TotalTrashCollected int       `json:"total_trash_collected"`
	SessionCount        int       `json:"session_count"`
	TotalDurationSec    int64     `json:"total_duration_sec"`
	UpdatedAt           time.Time `json:"updated_at"`
}
