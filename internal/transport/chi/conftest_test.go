package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/B-Leucht/open-atlas/internal/domain"
	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
	"github.com/B-Leucht/open-atlas/internal/domain/feature"
	domws "github.com/B-Leucht/open-atlas/internal/domain/workspace"
	healthuc "github.com/B-Leucht/open-atlas/internal/usecase/health"
	searchuc "github.com/B-Leucht/open-atlas/internal/usecase/search"
	workspaceuc "github.com/B-Leucht/open-atlas/internal/usecase/workspace"
)

// --- Mocks ---

// memRepo is an in-memory workspace repository.
type memRepo struct {
	mu  sync.Mutex
	byID map[string]domws.Workspace
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[string]domws.Workspace)}
}

func (m *memRepo) Create(_ context.Context, ws domws.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[ws.ID()]; ok {
		return domain.ErrAlreadyExists
	}
	m.byID[ws.ID()] = ws
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (domws.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.byID[id]
	if !ok {
		return domws.Workspace{}, domain.ErrNotFound
	}
	return ws, nil
}

func (m *memRepo) List(_ context.Context) ([]domws.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domws.Workspace, 0, len(m.byID))
	for _, ws := range m.byID {
		out = append(out, ws)
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, ws domws.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[ws.ID()]; !ok {
		return domain.ErrNotFound
	}
	m.byID[ws.ID()] = ws
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// mockSource serves canned dataset outcomes to the search service.
type mockSource struct {
	outcomes map[string]dataset.Outcome
}

func (m *mockSource) Fetch(_ context.Context, id string) dataset.Outcome {
	if out, ok := m.outcomes[id]; ok {
		return out
	}
	return dataset.Unavailable("", "unknown dataset")
}

// mockResolver expands every workspace to its explicit dataset ids.
type mockResolver struct{}

func (mockResolver) Resolve(_ context.Context, ws domws.Workspace) []string {
	return ws.DatasetIDs()
}

// mockDiscovery serves canned catalog search results.
type mockDiscovery struct {
	summaries []dataset.Summary
	count     int
	err       error
}

func (m *mockDiscovery) SearchPackages(_ context.Context, _, _ string) ([]dataset.Summary, int, error) {
	return m.summaries, m.count, m.err
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Harness ---

type testEnv struct {
	router    chi.Router
	repo      *memRepo
	source    *mockSource
	discovery *mockDiscovery
	dbPinger  *mockPinger
	catPinger *mockPinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:      newMemRepo(),
		source:    &mockSource{outcomes: make(map[string]dataset.Outcome)},
		discovery: &mockDiscovery{},
		dbPinger:  &mockPinger{},
		catPinger: &mockPinger{},
	}

	logger := zap.NewNop()
	wsSvc := workspaceuc.New(env.repo).
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	searchSvc := searchuc.New(env.source, logger)
	healthSvc := healthuc.New(env.dbPinger, env.catPinger)

	server := NewServer(wsSvc, searchSvc, mockResolver{}, env.discovery, healthSvc, logger)
	r := chi.NewRouter()
	server.Register(r)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return out
}

func (e *testEnv) createWorkspace(t *testing.T, body string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/workspaces", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create workspace: status %d: %s", rec.Code, rec.Body.String())
	}
	id, _ := decodeJSON(t, rec)["id"].(string)
	if id == "" {
		t.Fatal("create workspace: no id in response")
	}
	return id
}

func pointFeature(name string, lon, lat float64) feature.Feature {
	return feature.Feature{
		Geometry:   orb.Point{lon, lat},
		Properties: feature.Properties{"name": feature.String(name)},
	}
}
