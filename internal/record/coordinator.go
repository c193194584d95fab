package record

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/PeterChen712/EcoSortify-sub002/internal/shared/geo"
)

// ErrClosed reports work submitted after the coordinator shut down.
var ErrClosed = errors.New("coordinator closed")

// EventSink receives fire-and-forget notifications about recording
// progress. Implementations must not block.
type EventSink interface {
	DistanceChanged(sessionID string, totalDistanceM float64)
	SessionEnded(sessionID string, final Session)
}

// Options tunes the ingestion worker pool.
type Options struct {
	Workers   int
	QueueSize int
}

const (
	defaultWorkers   = 4
	defaultQueueSize = 256

	// one point per 100 m recorded
	pointsPerMeter = 0.01
)

type jobKind int

const (
	jobIngest jobKind = iota
	jobEnd
	jobBarrier
)

type endResult struct {
	session Session
	err     error
}

type job struct {
	kind        jobKind
	sessionID   string
	fix         geo.Fix
	endedAt     time.Time
	durationSec int64
	end         chan endResult
	done        chan struct{}
}

// Coordinator is the only writer of session and track-point state. Fix
// producers call Ingest from their own callback context and get an
// immediate acknowledgement; persistence runs on a bounded worker pool.
// A session id always hashes to the same worker, so each session has a
// single writer and fixes persist in arrival order.
type Coordinator struct {
	store  Store
	events EventSink
	queues []chan job
	stop   chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var coordNow = time.Now

func NewCoordinator(store Store, events EventSink, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	c := &Coordinator{
		store:  store,
		events: events,
		queues: make([]chan job, opts.Workers),
		stop:   make(chan struct{}),
	}
	for i := range c.queues {
		c.queues[i] = make(chan job, opts.QueueSize)
		c.wg.Add(1)
		go c.worker(c.queues[i])
	}
	return c
}

// StartSession creates a new active session for the owner. The active
// check goes through the store, not an in-memory flag, so a process
// restarted mid-session is detected.
func (c *Coordinator) StartSession(ctx context.Context, owner string) (Session, error) {
	active, err := c.store.HasActiveSession(ctx, owner)
	if err != nil {
		return Session{}, err
	}
	if active {
		return Session{}, ErrActiveSessionExists
	}
	return c.store.CreateSession(ctx, owner, coordNow())
}

// Ingest validates the session against the store and enqueues the fix
// for persistence. A full queue drops the fix with a logged error
// rather than stalling the position source.
func (c *Coordinator) Ingest(ctx context.Context, sessionID string, fix Fix) error {
	if fix.RecordedAt.IsZero() {
		fix.RecordedAt = coordNow()
	}

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != StatusActive {
		return ErrSessionCompleted
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	q := c.queues[c.shard(sessionID)]
	select {
	case q <- job{kind: jobIngest, sessionID: sessionID, fix: fix}:
	default:
		log.Printf("record: ingest queue full, dropping fix for session %s", sessionID)
	}
	c.mu.Unlock()
	return nil
}

// EndSession completes the session. The completion travels through the
// session's queue, so every fix accepted before it is persisted first.
// A second call fails with ErrSessionCompleted.
func (c *Coordinator) EndSession(ctx context.Context, sessionID string, finalDuration time.Duration) (Session, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.Status != StatusActive {
		return Session{}, ErrSessionCompleted
	}

	j := job{
		kind:        jobEnd,
		sessionID:   sessionID,
		endedAt:     coordNow(),
		durationSec: int64(finalDuration.Seconds()),
		end:         make(chan endResult, 1),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Session{}, ErrClosed
	}
	q := c.queues[c.shard(sessionID)]
	c.mu.Unlock()

	select {
	case q <- j:
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}

	select {
	case res := <-j.end:
		return res.session, res.err
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

// Flush blocks until every fix enqueued before the call has been
// persisted or dropped.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	queues := c.queues
	c.mu.Unlock()

	barriers := make([]chan struct{}, 0, len(queues))
	for _, q := range queues {
		done := make(chan struct{})
		select {
		case q <- job{kind: jobBarrier, done: done}:
			barriers = append(barriers, done)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, done := range barriers {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops intake, drains in-flight persistence within the context
// deadline, then stops the workers. Unflushed points are never deleted;
// anything still queued past the deadline is abandoned to the workers.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.Flush(ctx)
	close(c.stop)
	c.wg.Wait()
	return err
}

func (c *Coordinator) shard(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(len(c.queues)))
}

func (c *Coordinator) worker(q chan job) {
	defer c.wg.Done()

	accs := map[string]*geo.Accumulator{}
	for {
		select {
		case j := <-q:
			switch j.kind {
			case jobIngest:
				c.persistFix(accs, j)
			case jobEnd:
				res := c.completeSession(j)
				delete(accs, j.sessionID)
				j.end <- res
			case jobBarrier:
				close(j.done)
			}
		case <-c.stop:
			return
		}
	}
}

// persistFix computes the increment against the last accepted fix and
// writes point plus increment atomically. On failure the fix is dropped
// and does not anchor the next increment, so the stored distance always
// equals the sum of stored increments.
func (c *Coordinator) persistFix(accs map[string]*geo.Accumulator, j job) {
	ctx := context.Background()

	acc := accs[j.sessionID]
	if acc == nil {
		acc = &geo.Accumulator{}
		last, ok, err := c.store.LastPoint(ctx, j.sessionID)
		if err != nil {
			log.Printf("record: dropping fix for session %s: last point lookup: %v", j.sessionID, err)
			return
		}
		if ok {
			acc.Reset(last)
		}
		accs[j.sessionID] = acc
	}

	prev, hadPrev := acc.Last()
	inc := acc.Advance(j.fix)

	point := TrackPoint{
		SessionID:  j.sessionID,
		Lat:        j.fix.Lat,
		Lng:        j.fix.Lng,
		AltitudeM:  j.fix.AltitudeM,
		RecordedAt: j.fix.RecordedAt,
		IncrementM: inc,
	}
	_, total, err := c.store.AppendPoint(ctx, point)
	if err != nil {
		if hadPrev {
			acc.Reset(prev)
		} else {
			*acc = geo.Accumulator{}
		}
		log.Printf("record: dropping fix for session %s: %v", j.sessionID, err)
		return
	}

	if c.events != nil {
		c.events.DistanceChanged(j.sessionID, total)
	}
}

func (c *Coordinator) completeSession(j job) endResult {
	ctx := context.Background()

	session, err := c.store.GetSession(ctx, j.sessionID)
	if err != nil {
		return endResult{err: err}
	}
	if session.Status != StatusActive {
		return endResult{err: ErrSessionCompleted}
	}

	points := int(session.TotalDistanceM * pointsPerMeter)
	if err := c.store.MarkCompleted(ctx, j.sessionID, j.endedAt, j.durationSec, points); err != nil {
		return endResult{err: err}
	}

	session.Status = StatusCompleted
	session.EndedAt = j.endedAt
	session.DurationSec = j.durationSec
	session.PointsEarned = points

	if c.events != nil {
		c.events.SessionEnded(j.sessionID, session)
	}
	return endResult{session: session}
}
