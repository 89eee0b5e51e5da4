package runstatus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type mockRepo struct {
	runs []*Run
	err  error
}

func (m *mockRepo) Begin(ctx context.Context, r *Run) error  { return nil }
func (m *mockRepo) Finish(ctx context.Context, r *Run) error { return nil }
func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	return nil, nil
}
func (m *mockRepo) Latest(ctx context.Context, limit int) ([]*Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func newStatusServer(repo Repository) *echo.Echo {
	e := echo.New()
	NewHandler(repo).RegisterRoutes(e)
	return e
}

func TestLatestRuns(t *testing.T) {
	ended := time.Now().UTC()
	repo := &mockRepo{runs: []*Run{{
		ID:                uuid.New(),
		StartedAt:         ended.Add(-time.Minute),
		EndedAt:           &ended,
		Outcome:           OutcomeCompleted,
		PatientsProcessed: 12,
		AdmissionsCreated: 30,
	}}}
	e := newStatusServer(repo)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Runs []*Run `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Runs) != 1 || body.Runs[0].PatientsProcessed != 12 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestLatestRuns_EmptyIsAList(t *testing.T) {
	e := newStatusServer(&mockRepo{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(body["runs"]) != "[]" {
		t.Errorf("runs = %s, want an empty JSON array", body["runs"])
	}
}

func TestLatestRuns_InvalidLimit(t *testing.T) {
	e := newStatusServer(&mockRepo{})

	for _, limit := range []string{"0", "-1", "abc", "101"} {
		req := httptest.NewRequest(http.MethodGet, "/status?limit="+limit, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}
