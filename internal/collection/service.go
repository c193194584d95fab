package collection

import (
	"context"
	"errors"

	"github.com/PeterChen712/EcoSortify-sub002/internal/db"

	"github.com/google/uuid"
)

// ErrSessionNotActive reports an item added against a session that is
// missing or already completed.
var ErrSessionNotActive = errors.New("session missing or not active")

// default points per item kind; unknown kinds fall back to 1
var kindPoints = map[string]int{
	"plastic": 3,
	"glass":   4,
	"metal":   5,
	"paper":   2,
	"organic": 1,
}

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

// AddItem records a collected item against an active session. Points
// are always scored server-side by kind; anything the caller put in
// the Points field is discarded.
func (s *Service) AddItem(ctx context.Context, input CollectedItem) (CollectedItem, error) {
	var active bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM run_sessions WHERE id=$1 AND user_id=$2 AND status='active')
	`, input.SessionID, input.UserID).Scan(&active)
	if err != nil {
		return CollectedItem{}, err
	}
	if !active {
		return CollectedItem{}, ErrSessionNotActive
	}

	input.ID = uuid.NewString()
	input.Points = pointsForKind(input.Kind)
	row := s.db.QueryRow(ctx, `
		INSERT INTO collected_items (id, session_id, user_id, kind, lat, lng, points)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, input.ID, input.SessionID, input.UserID, input.Kind, input.Lat, input.Lng, input.Points)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return CollectedItem{}, err
	}
	return input, nil
}

func (s *Service) ItemsBySession(ctx context.Context, sessionID string) ([]CollectedItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, user_id, kind, lat, lng, points, created_at
		FROM collected_items WHERE session_id=$1
		ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CollectedItem
	for rows.Next() {
		var it CollectedItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.UserID, &it.Kind, &it.Lat, &it.Lng, &it.Points, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// TotalsByOwner counts and scores every item an owner ever collected.
// Unknown owners get zero totals, not an error.
func (s *Service) TotalsByOwner(ctx context.Context, owner string) (Totals, error) {
	var totals Totals
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(points),0)
		FROM collected_items WHERE user_id=$1
	`, owner).Scan(&totals.ItemCount, &totals.TotalPoints)
	if err != nil {
		return Totals{}, err
	}
	return totals, nil
}

func pointsForKind(kind string) int {
	if p, ok := kindPoints[kind]; ok {
		return p
	}
	return 1
}
