package stats

import (
	"context"
	"time"

	"github.com/PeterChen712/EcoSortify-sub002/internal/db"
)

// Snapshot is a derived aggregate over one owner's stored sessions and
// collected items. It is recomputed on demand and never hand-edited.
type Snapshot struct {
	UserID              string    `json:"user_id"`
	TotalPoints         int       `json:"total_points"`
	TotalDistanceM      float64   `json:"total_distance_m"`
	TotalTrashCollected int       `json:"total_trash_collected"`
	SessionCount        int       `json:"session_count"`
	TotalDurationSec    int64     `json:"total_duration_sec"`
	ComputedAt          time.Time `json:"computed_at"`
}

type Aggregator struct {
	db db.Querier
}

var statsNow = time.Now

func NewAggregator(q db.Querier) *Aggregator {
	return &Aggregator{db: q}
}

// ComputeStats sums distance, duration and points across all of the
// owner's sessions plus the collected-item sub-store. Owners with no
// sessions get a zero-valued snapshot.
func (a *Aggregator) ComputeStats(ctx context.Context, owner string) (Snapshot, error) {
	snap := Snapshot{UserID: owner, ComputedAt: statsNow()}

	err := a.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_distance_m),0),
		       COALESCE(SUM(duration_sec),0), COALESCE(SUM(points_earned),0)
		FROM run_sessions WHERE user_id=$1
	`, owner).Scan(&snap.SessionCount, &snap.TotalDistanceM, &snap.TotalDurationSec, &snap.TotalPoints)
	if err != nil {
		return Snapshot{}, err
	}

	var itemPoints int
	err = a.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(points),0)
		FROM collected_items WHERE user_id=$1
	`, owner).Scan(&snap.TotalTrashCollected, &itemPoints)
	if err != nil {
		return Snapshot{}, err
	}
	snap.TotalPoints += itemPoints

	return snap, nil
}
