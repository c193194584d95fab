package syncgw

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/PeterChen712/EcoSortify-sub002/internal/stats"
)

// StatsSource computes the snapshot a push uploads.
type StatsSource interface {
	ComputeStats(ctx context.Context, owner string) (stats.Snapshot, error)
}

type listenerKey struct {
	owner    string
	category Category
}

// Gateway uploads locally-computed statistics to the remote store and
// mirrors remote pushes into a read cache. The local session store is
// authoritative: no remote failure or remote document ever mutates it.
type Gateway struct {
	stats    StatsSource
	profiles ProfileSource
	remote   RemoteStore
	cache    *ReadCache

	mu        sync.Mutex
	listeners map[listenerKey]func()
}

var gatewayNow = time.Now

func NewGateway(statsSource StatsSource, profiles ProfileSource, remote RemoteStore) *Gateway {
	return &Gateway{
		stats:     statsSource,
		profiles:  profiles,
		remote:    remote,
		cache:     NewReadCache(),
		listeners: map[listenerKey]func(){},
	}
}

// Cache exposes the read-side identity projection.
func (g *Gateway) Cache() *ReadCache { return g.cache }

// Push computes the owner's snapshot and identity and replaces, not
// merges, the owner's document in every remote collection. A remote
// failure is reported as *TransientRemoteError and is not retried;
// local state is untouched either way.
func (g *Gateway) Push(ctx context.Context, owner string) error {
	snap, err := g.stats.ComputeStats(ctx, owner)
	if err != nil {
		return err
	}
	identity, err := g.profiles.OwnerIdentity(ctx, owner)
	if err != nil {
		return err
	}

	doc := RemoteDocument{
		UserID:              owner,
		Username:            identity.Username,
		FullName:            identity.FullName,
		AvatarURL:           identity.AvatarURL,
		TotalPoints:         snap.TotalPoints,
		TotalDistanceM:      snap.TotalDistanceM,
		TotalTrashCollected: snap.TotalTrashCollected,
		SessionCount:        snap.SessionCount,
		TotalDurationSec:    snap.TotalDurationSec,
		UpdatedAt:           gatewayNow(),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	for _, category := range []Category{CategoryStats, CategoryRanking, CategoryProfile} {
		if err := g.remote.Upsert(ctx, string(category), owner, raw); err != nil {
			return &TransientRemoteError{Op: "upsert " + string(category), Err: err}
		}
	}
	return nil
}

// Subscribe registers a push listener for one (owner, category) pair,
// cancelling any prior registration first so no duplicate listener can
// exist. Profile documents additionally project their identity fields
// into the read cache; stats and ranking documents are only forwarded.
// Remote errors reach onError once per failed operation and leave the
// subscription alive.
func (g *Gateway) Subscribe(owner string, category Category, onUpdate func(RemoteDocument), onError func(error)) error {
	switch category {
	case CategoryStats, CategoryRanking, CategoryProfile:
	default:
		return ErrUnknownCategory
	}

	if category == CategoryStats {
		if err := g.ensureStatsDocument(owner); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := listenerKey{owner: owner, category: category}
	if cancel, ok := g.listeners[key]; ok {
		cancel()
		delete(g.listeners, key)
	}

	cancel, err := g.remote.Listen(string(category), owner, func(raw []byte) {
		var doc RemoteDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			onError(err)
			return
		}
		if category == CategoryProfile {
			g.cache.Apply(doc)
		}
		onUpdate(doc)
	}, onError)
	if err != nil {
		return &TransientRemoteError{Op: "listen " + string(category), Err: err}
	}

	g.listeners[key] = cancel
	return nil
}

// Unsubscribe cancels the listener for one (owner, category) pair, if
// any.
func (g *Gateway) Unsubscribe(owner string, category Category) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := listenerKey{owner: owner, category: category}
	if cancel, ok := g.listeners[key]; ok {
		cancel()
		delete(g.listeners, key)
	}
}

// UnsubscribeAll cancels every active listener for the owner. Calling
// it with nothing subscribed is a no-op.
func (g *Gateway) UnsubscribeAll(owner string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, cancel := range g.listeners {
		if key.owner == owner {
			cancel()
			delete(g.listeners, key)
		}
	}
}

// Close tears down every subscription for every owner.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, cancel := range g.listeners {
		cancel()
		delete(g.listeners, key)
	}
}

// ensureStatsDocument writes a zero-valued default so a first-time
// subscriber observes a document immediately.
func (g *Gateway) ensureStatsDocument(owner string) error {
	ctx := context.Background()

	_, err := g.remote.Get(ctx, string(CategoryStats), owner)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoDocument) {
		return &TransientRemoteError{Op: "get stats", Err: err}
	}

	raw, err := json.Marshal(RemoteDocument{UserID: owner, UpdatedAt: gatewayNow()})
	if err != nil {
		return err
	}
	if err := g.remote.Upsert(ctx, string(CategoryStats), owner, raw); err != nil {
		return &TransientRemoteError{Op: "upsert stats default", Err: err}
	}
	return nil
}
