package record

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func testAuth(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func TestRecordHandlersLifecycle(t *testing.T) {
	mock, store := newStoreMock(t)
	coord := NewCoordinator(store, nil, Options{Workers: 1, QueueSize: 16})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = coord.Close(ctx)
	}()

	app := fiber.New()
	RegisterRoutes(app.Group("/record"), coord, store, testAuth("user-1"))

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO run_sessions`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "active").
		WillReturnRows(pgxmock.NewRows([]string{"started_at", "status"}).AddRow(time.Now(), "active"))

	req := httptest.NewRequest(http.MethodPost, "/record/sessions", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session status: %v %v", err, resp.StatusCode)
	}
	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	activeRow := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{"id", "user_id", "started_at", "ended_at", "total_distance_m", "duration_sec", "points_earned", "status"}).
			AddRow(session.ID, "user-1", time.Now(), (*time.Time)(nil), 0.0, int64(0), 0, "active")
	}

	mock.ExpectQuery(`SELECT id, user_id, started_at, ended_at`).
		WithArgs(session.ID).
		WillReturnRows(activeRow())
	mock.ExpectQuery(`SELECT lat, lng, COALESCE\(altitude_m,0\), recorded_at`).
		WithArgs(session.ID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`WITH pt AS`).
		WithArgs(session.ID, -6.2, 106.8, 0.0, pgxmock.AnyArg(), 0.0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "total_distance_m"}).AddRow(int64(1), time.Now(), 0.0))

	body, _ := json.Marshal(Fix{Lat: -6.2, Lng: 106.8})
	req = httptest.NewRequest(http.MethodPost, "/record/sessions/"+session.ID+"/fixes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusAccepted {
		t.Fatalf("ingest status: %v %v", err, resp.StatusCode)
	}
	if err := coord.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	mock.ExpectQuery(`SELECT id, user_id, started_at, ended_at`).
		WithArgs(session.ID).
		WillReturnRows(activeRow())
	mock.ExpectQuery(`SELECT id, user_id, started_at, ended_at`).
		WithArgs(session.ID).
		WillReturnRows(activeRow())
	mock.ExpectExec(`UPDATE run_sessions`).
		WithArgs(session.ID, pgxmock.AnyArg(), int64(60), 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	endBody := []byte(`{"duration_sec":60}`)
	req = httptest.NewRequest(http.MethodPost, "/record/sessions/"+session.ID+"/end", bytes.NewReader(endBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("end status: %v %v", err, resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordHandlersNotFound(t *testing.T) {
	mock, store := newStoreMock(t)
	coord := NewCoordinator(store, nil, Options{Workers: 1, QueueSize: 4})
	defer func() { _ = coord.Close(context.Background()) }()

	app := fiber.New()
	RegisterRoutes(app.Group("/record"), coord, store, testAuth("user-1"))

	mock.ExpectQuery(`SELECT id, user_id, started_at, ended_at`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	body, _ := json.Marshal(Fix{Lat: -6.2, Lng: 106.8})
	req := httptest.NewRequest(http.MethodPost, "/record/sessions/missing/fixes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v %v", err, resp.StatusCode)
	}
}

func TestRecordHandlersConflict(t *testing.T) {
	mock, store := newStoreMock(t)
	coord := NewCoordinator(store, nil, Options{Workers: 1, QueueSize: 4})
	defer func() { _ = coord.Close(context.Background()) }()

	app := fiber.New()
	RegisterRoutes(app.Group("/record"), coord, store, testAuth("user-1"))

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	req := httptest.NewRequest(http.MethodPost, "/record/sessions", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %v %v", err, resp.StatusCode)
	}
}

func TestRecordHandlersBadBody(t *testing.T) {
	store := NewSQLStore(nil)
	coord := NewCoordinator(newMemStore(), nil, Options{Workers: 1, QueueSize: 4})
	defer func() { _ = coord.Close(context.Background()) }()

	app := fiber.New()
	RegisterRoutes(app.Group("/record"), coord, store, testAuth("user-1"))

	req := httptest.NewRequest(http.MethodPost, "/record/sessions/s1/fixes", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %v", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/record/sessions/s1/end", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %v", resp.StatusCode)
	}
}

func TestRecordHandlersUnauthorized(t *testing.T) {
	coord := NewCoordinator(newMemStore(), nil, Options{Workers: 1, QueueSize: 4})
	defer func() { _ = coord.Close(context.Background()) }()

	app := fiber.New()
	RegisterRoutes(app.Group("/record"), coord, NewSQLStore(nil), testAuth(""))

	req := httptest.NewRequest(http.MethodPost, "/record/sessions", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %v", resp.StatusCode)
	}
}
