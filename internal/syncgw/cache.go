package syncgw

import (
	"sync"
	"time"
)

// CachedIdentity is the advisory read-cache projection of a remote
// profile document: display identity only, never aggregates. It may be
// stale and must not feed session math.
type CachedIdentity struct {
	UserID    string
	Username  string
	FullName  string
	AvatarURL string
	UpdatedAt time.Time
}

// ReadCache holds the identity projection for each owner. Writes are
// monotonic by document timestamp so a stale remote push never
// regresses a fresher value.
type ReadCache struct {
	mu      sync.RWMutex
	byOwner map[string]CachedIdentity
}

func NewReadCache() *ReadCache {
	return &ReadCache{byOwner: map[string]CachedIdentity{}}
}

// Apply projects the identity fields of a profile document into the
// cache. Documents older than the cached entry are ignored.
func (c *ReadCache) Apply(doc RemoteDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.byOwner[doc.UserID]; ok && doc.UpdatedAt.Before(cur.UpdatedAt) {
		return
	}
	c.byOwner[doc.UserID] = CachedIdentity{
		UserID:    doc.UserID,
		Username:  doc.Username,
		FullName:  doc.FullName,
		AvatarURL: doc.AvatarURL,
		UpdatedAt: doc.UpdatedAt,
	}
}

func (c *ReadCache) Get(owner string) (CachedIdentity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byOwner[owner]
	return id, ok
}
