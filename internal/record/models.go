package record

import (
	"time"

	"github.com/PeterChen712/EcoSortify-sub002/internal/shared/geo"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Session is one recorded activity instance owned by a single user.
// While active it is mutated only by the Coordinator; once completed it
// is immutable except for points amendments.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
	TotalDistanceM float64   `json:"total_distance_m"`
	DurationSec    int64     `json:"duration_sec"`
	PointsEarned   int       `json:"points_earned"`
	Status         string    `json:"status"`
}

// TrackPoint is one ordered, distance-annotated position sample within
// a session. Points are append-only.
type TrackPoint struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AltitudeM  float64   `json:"altitude_m"`
	RecordedAt time.Time `json:"recorded_at"`
	IncrementM float64   `json:"increment_m"`
	CreatedAt  time.Time `json:"created_at"`
}

// Fix re-exports the raw position sample consumed by Ingest.
type Fix = geo.Fix
