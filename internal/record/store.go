package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PeterChen712/EcoSortify-sub002/internal/db"
	"github.com/PeterChen712/EcoSortify-sub002/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Store is the persistence contract the Coordinator writes through.
// Any store that keeps the stated invariants qualifies; SQLStore is the
// Postgres implementation.
type Store interface {
	CreateSession(ctx context.Context, owner string, startedAt time.Time) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	HasActiveSession(ctx context.Context, owner string) (bool, error)
	LastPoint(ctx context.Context, sessionID string) (geo.Fix, bool, error)
	AppendPoint(ctx context.Context, p TrackPoint) (TrackPoint, float64, error)
	MarkCompleted(ctx context.Context, id string, endedAt time.Time, durationSec int64, points int) error
}

type SQLStore struct {
	db db.Querier
}

func NewSQLStore(q db.Querier) *SQLStore {
	return &SQLStore{db: q}
}

func (s *SQLStore) CreateSession(ctx context.Context, owner string, startedAt time.Time) (Session, error) {
	session := Session{
		ID:        uuid.NewString(),
		UserID:    owner,
		StartedAt: startedAt,
		Status:    StatusActive,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO run_sessions (id, user_id, started_at, status)
		VALUES ($1,$2,$3,$4)
		RETURNING started_at, status
	`, session.ID, session.UserID, session.StartedAt, session.Status)
	if err := row.Scan(&session.StartedAt, &session.Status); err != nil {
		// the one-active-session-per-owner partial unique index is the
		// backstop for two concurrent starts passing HasActiveSession
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Session{}, ErrActiveSessionExists
		}
		return Session{}, err
	}
	return session, nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, started_at, ended_at, COALESCE(total_distance_m,0),
		       COALESCE(duration_sec,0), COALESCE(points_earned,0), status
		FROM run_sessions WHERE id=$1
	`, id)

	var session Session
	var endedAt *time.Time
	err := row.Scan(&session.ID, &session.UserID, &session.StartedAt, &endedAt,
		&session.TotalDistanceM, &session.DurationSec, &session.PointsEarned, &session.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if endedAt != nil {
		session.EndedAt = *endedAt
	}
	return session, nil
}

func (s *SQLStore) HasActiveSession(ctx context.Context, owner string) (bool, error) {
	var active bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM run_sessions WHERE user_id=$1 AND status='active')
	`, owner).Scan(&active)
	return active, err
}

func (s *SQLStore) LastPoint(ctx context.Context, sessionID string) (geo.Fix, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT lat, lng, COALESCE(altitude_m,0), recorded_at
		FROM track_points
		WHERE session_id=$1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`, sessionID)

	var fix geo.Fix
	err := row.Scan(&fix.Lat, &fix.Lng, &fix.AltitudeM, &fix.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return geo.Fix{}, false, nil
	}
	if err != nil {
		return geo.Fix{}, false, err
	}
	return fix, true, nil
}

// AppendPoint inserts the point and increments the session distance in
// a single statement, so a point and its increment land together or not
// at all. Returns the stored point and the new session total.
func (s *SQLStore) AppendPoint(ctx context.Context, p TrackPoint) (TrackPoint, float64, error) {
	row := s.db.QueryRow(ctx, `
		WITH pt AS (
			INSERT INTO track_points (session_id, lat, lng, altitude_m, recorded_at, increment_m)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id, created_at
		), upd AS (
			UPDATE run_sessions
			SET total_distance_m = COALESCE(total_distance_m,0) + $6
			WHERE id = $1
			RETURNING total_distance_m
		)
		SELECT pt.id, pt.created_at, upd.total_distance_m FROM pt, upd
	`, p.SessionID, p.Lat, p.Lng, p.AltitudeM, p.RecordedAt, p.IncrementM)
	var total float64
	if err := row.Scan(&p.ID, &p.CreatedAt, &total); err != nil {
		return TrackPoint{}, 0, fmt.Errorf("append point: %w", err)
	}
	return p, total, nil
}

func (s *SQLStore) MarkCompleted(ctx context.Context, id string, endedAt time.Time, durationSec int64, points int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE run_sessions
		SET status='completed', ended_at=$2, duration_sec=$3, points_earned=$4
		WHERE id=$1 AND status='active'
	`, id, endedAt, durationSec, points)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return ErrSessionCompleted
	}
	return nil
}

// AmendPoints adjusts the score of a session after completion. The only
// post-completion mutation a session admits.
func (s *SQLStore) AmendPoints(ctx context.Context, id string, delta int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE run_sessions
		SET points_earned = COALESCE(points_earned,0) + $2
		WHERE id=$1
	`, id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLStore) Points(ctx context.Context, sessionID string) ([]TrackPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, lat, lng, COALESCE(altitude_m,0), recorded_at, COALESCE(increment_m,0), created_at
		FROM track_points WHERE session_id=$1
		ORDER BY recorded_at, id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []TrackPoint
	for rows.Next() {
		var p TrackPoint
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Lat, &p.Lng, &p.AltitudeM, &p.RecordedAt, &p.IncrementM, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}
