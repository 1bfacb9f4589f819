package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/game2048-metrics/internal/web"
	"github.com/Sternrassler/game2048-metrics/pkg/metrics"
)

func newTestRouter(t *testing.T) (http.Handler, *metrics.Registry, *web.Page) {
	t.Helper()

	reg, err := metrics.NewGameRegistry()
	if err != nil {
		t.Fatalf("NewGameRegistry() error = %v", err)
	}
	page, err := web.NewPage(web.DefaultPageData())
	if err != nil {
		t.Fatalf("NewPage() error = %v", err)
	}

	router := NewRouter(Options{
		Registry: reg,
		Page:     page,
		Logger:   zerolog.Nop(),
	})
	return router, reg, page
}

func do(t *testing.T, h http.Handler, method, path string) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func decodeJSON(t *testing.T, body string) map[string]string {
	t.Helper()

	var m map[string]string
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return m
}

func counterValue(t *testing.T, reg *metrics.Registry, name string) uint64 {
	t.Helper()

	c, ok := reg.Counter(name)
	if !ok {
		t.Fatalf("counter %s not registered", name)
	}
	return c.Value()
}

func TestIndex(t *testing.T) {
	router, _, page := newTestRouter(t)

	resp, body := do(t, router, http.MethodGet, "/")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if body != string(page.Body()) {
		t.Error("Expected the game page body")
	}
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	resp, body := do(t, router, http.MethodGet, "/health")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if body != "OK" {
		t.Errorf("Expected body 'OK', got %s", body)
	}
}

func TestServiceHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	resp, body := do(t, router, http.MethodGet, "/metrics/health")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	got := decodeJSON(t, body)
	if got["status"] != "healthy" || got["service"] != "2048-game" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestNotFound(t *testing.T) {
	router, _, page := newTestRouter(t)

	resp, body := do(t, router, http.MethodGet, "/does-not-exist")

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
	if body != string(page.Body()) {
		t.Error("Expected the game page body on 404")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router, reg, _ := newTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/move"},
		{http.MethodGet, "/start"},
		{http.MethodPost, "/metrics"},
		{http.MethodDelete, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, body := do(t, router, tt.method, tt.path)

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}
			if got := decodeJSON(t, body); got["error"] != "Bad request" {
				t.Errorf("error = %q, want %q", got["error"], "Bad request")
			}
		})
	}

	if v := counterValue(t, reg, metrics.GameMovesTotal); v != 0 {
		t.Errorf("GET /move must not increment, got %d", v)
	}
}

func TestHeadRequests(t *testing.T) {
	router, reg, _ := newTestRouter(t)

	metricsReg, err := metrics.NewGameRegistry()
	if err != nil {
		t.Fatalf("NewGameRegistry() error = %v", err)
	}
	metricsRouter := NewMetricsRouter(metricsReg, zerolog.Nop())

	tests := []struct {
		name    string
		handler http.Handler
		path    string
	}{
		{"main index", router, "/"},
		{"main health", router, "/health"},
		{"main metrics", router, "/metrics"},
		{"main service health", router, "/metrics/health"},
		{"metrics listener health", metricsRouter, "/health"},
		{"metrics listener metrics", metricsRouter, "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, tt.handler, http.MethodHead, tt.path)

			if resp.StatusCode != http.StatusOK {
				t.Errorf("HEAD %s: expected status 200, got %d", tt.path, resp.StatusCode)
			}
		})
	}

	// HEAD on an ingestion route is not a GET route and must not count.
	resp, _ := do(t, router, http.MethodHead, "/move")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("HEAD /move: expected status 400, got %d", resp.StatusCode)
	}
	if v := counterValue(t, reg, metrics.GameMovesTotal); v != 0 {
		t.Errorf("HEAD /move must not increment, got %d", v)
	}
}

func TestRecordEvents(t *testing.T) {
	tests := []struct {
		path    string
		counter string
		other   string
		message string
	}{
		{"/move", metrics.GameMovesTotal, metrics.GamesStartedTotal, "Move recorded"},
		{"/start", metrics.GamesStartedTotal, metrics.GameMovesTotal, "Game start recorded"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			router, reg, _ := newTestRouter(t)

			resp, body := do(t, router, http.MethodPost, tt.path)

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", resp.StatusCode)
			}
			got := decodeJSON(t, body)
			if got["status"] != "success" || got["message"] != tt.message {
				t.Errorf("unexpected body %v", got)
			}

			if v := counterValue(t, reg, tt.counter); v != 1 {
				t.Errorf("%s = %d, want 1", tt.counter, v)
			}
			if v := counterValue(t, reg, tt.other); v != 0 {
				t.Errorf("%s = %d, want 0", tt.other, v)
			}
		})
	}
}

func TestRecordEvents_IgnoresBody(t *testing.T) {
	router, reg, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/move", strings.NewReader(`{"direction":"nowhere"`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if v := counterValue(t, reg, metrics.GameMovesTotal); v != 1 {
		t.Errorf("%s = %d, want 1", metrics.GameMovesTotal, v)
	}
}

func TestScenario_StartThenMoves(t *testing.T) {
	router, _, _ := newTestRouter(t)

	do(t, router, http.MethodPost, "/start")
	for i := 0; i < 3; i++ {
		do(t, router, http.MethodPost, "/move")
	}

	resp, body := do(t, router, http.MethodGet, "/metrics")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != metrics.ContentType {
		t.Errorf("Content-Type = %q, want %q", ct, metrics.ContentType)
	}
	if !strings.Contains(body, "games_started_total 1\n") {
		t.Errorf("missing games_started_total 1:\n%s", body)
	}
	if !strings.Contains(body, "game_moves_total 3\n") {
		t.Errorf("missing game_moves_total 3:\n%s", body)
	}
}

func TestScenario_MoveBeforeStart(t *testing.T) {
	router, reg, _ := newTestRouter(t)

	moveResp, _ := do(t, router, http.MethodPost, "/move")
	startResp, _ := do(t, router, http.MethodPost, "/start")

	if moveResp.StatusCode != http.StatusOK {
		t.Errorf("POST /move: expected 200, got %d", moveResp.StatusCode)
	}
	if startResp.StatusCode != http.StatusOK {
		t.Errorf("POST /start: expected 200, got %d", startResp.StatusCode)
	}
	if v := counterValue(t, reg, metrics.GameMovesTotal); v != 1 {
		t.Errorf("%s = %d, want 1", metrics.GameMovesTotal, v)
	}
	if v := counterValue(t, reg, metrics.GamesStartedTotal); v != 1 {
		t.Errorf("%s = %d, want 1", metrics.GamesStartedTotal, v)
	}
}

func TestMetrics_ZeroAndRepeatable(t *testing.T) {
	router, _, _ := newTestRouter(t)

	_, first := do(t, router, http.MethodGet, "/metrics")
	_, second := do(t, router, http.MethodGet, "/metrics")

	for _, want := range []string{"game_moves_total 0\n", "games_started_total 0\n"} {
		if !strings.Contains(first, want) {
			t.Errorf("missing %q:\n%s", want, first)
		}
	}
	if first != second {
		t.Errorf("repeated reads differ:\n%s\n---\n%s", first, second)
	}
}

func TestConcurrentMoves(t *testing.T) {
	router, reg, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	const n = 200

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := srv.Client().Post(srv.URL+"/move", "", nil)
			if err != nil {
				errs <- err
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("POST /move failed: %v", err)
	}

	if v := counterValue(t, reg, metrics.GameMovesTotal); v != n {
		t.Errorf("%s = %d, want %d", metrics.GameMovesTotal, v, n)
	}
	if v := counterValue(t, reg, metrics.GamesStartedTotal); v != 0 {
		t.Errorf("%s = %d, want 0", metrics.GamesStartedTotal, v)
	}
}

func TestRecordEvent_UnknownCounter(t *testing.T) {
	reg, err := metrics.NewGameRegistry()
	if err != nil {
		t.Fatalf("NewGameRegistry() error = %v", err)
	}

	tests := []struct {
		name   string
		strict bool
		want   map[string]string
	}{
		{
			name:   "production",
			strict: false,
			want:   map[string]string{"status": "error", "message": "Failed to record undo"},
		},
		{
			name:   "development",
			strict: true,
			want:   map[string]string{"error": "Internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{registry: reg, logger: zerolog.Nop(), strict: tt.strict}
			handler := Recoverer(zerolog.Nop())(h.recordEvent("game_undo_total", "Undo recorded", "Failed to record undo"))

			resp, body := do(t, handler, http.MethodPost, "/undo")

			if resp.StatusCode != http.StatusInternalServerError {
				t.Fatalf("Expected status 500, got %d", resp.StatusCode)
			}
			got := decodeJSON(t, body)
			if len(got) != len(tt.want) {
				t.Errorf("body = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("body[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestMetricsRouter(t *testing.T) {
	reg, err := metrics.NewGameRegistry()
	if err != nil {
		t.Fatalf("NewGameRegistry() error = %v", err)
	}
	_ = reg.Increment(metrics.GamesStartedTotal)

	router := NewMetricsRouter(reg, zerolog.Nop())

	resp, body := do(t, router, http.MethodGet, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "games_started_total 1\n") {
		t.Errorf("missing games_started_total 1:\n%s", body)
	}

	resp, body = do(t, router, http.MethodGet, "/health")
	if resp.StatusCode != http.StatusOK || body != "OK" {
		t.Errorf("GET /health = %d %q, want 200 OK", resp.StatusCode, body)
	}

	resp, _ = do(t, router, http.MethodPost, "/move")
	if resp.StatusCode == http.StatusOK {
		t.Error("metrics listener must not accept ingestion")
	}
}
