package collection

import "time"

// CollectedItem is one piece of trash picked up during a recording
// session, geo-tagged where it was collected.
type CollectedItem struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Totals aggregates an owner's collected items.
type Totals struct {
	ItemCount   int `json:"item_count"`
	TotalPoints int `json:"total_points"`
}
