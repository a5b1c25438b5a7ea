package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/lorekeeper/internal/arc"
	"github.com/starford/lorekeeper/internal/drift"
	"github.com/starford/lorekeeper/internal/eventservice"
	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/narrative"
	"github.com/starford/lorekeeper/internal/testutil"
	"github.com/starford/lorekeeper/internal/timeline"
)

// testEnv sets up a temp timeline, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*eventservice.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*eventservice.Service, http.Handler) {
	t.Helper()
	_, fs := testutil.TestTimeline(t)
	db := testutil.TestDB(t)
	store := timeline.NewStore(fs)
	engine, err := arc.NewEngine(store, narrative.Heuristic{}, narrative.Heuristic{}, nil, drift.Auditor{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := eventservice.NewService(store, fs, db, engine, nil, logger)
	return svc, NewRouter(svc, authEnabled, token, sseHandler)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestAddAndListEvents(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/events", EventRequest{
		Date:  "2025-02-14",
		Title: "Earned BJJ blue belt",
		Type:  "milestone",
		Tags:  []string{"bjj", "martial_arts"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}
	added := decode[models.TimelineEvent](t, w)
	if added.ID == "" || added.Source != models.SourceUserEntry {
		t.Errorf("added = %+v", added)
	}

	w = do(t, router, http.MethodGet, "/events?tag=bjj&start=2025-01-01&end=2025-12-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[EventListResponse](t, w)
	if list.Total != 1 || list.Events[0].ID != added.ID {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/events?tag=robotics", nil)
	if list := decode[EventListResponse](t, w); list.Total != 0 || list.Events == nil {
		t.Errorf("robotics list = %+v", list)
	}
}

func TestAddEvent_Invalid(t *testing.T) {
	_, router := testEnv(t, "")
	tests := []struct {
		name string
		body any
	}{
		{"missing title", EventRequest{Date: "2025-01-01"}},
		{"missing date", EventRequest{Title: "x"}},
		{"bad date", EventRequest{Date: "01/02/2025", Title: "x"}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, "/events", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestArchiveAndCorrect(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/events", EventRequest{Date: "2025-03-01", Title: "Servo tset"})
	orig := decode[models.TimelineEvent](t, w)

	w = do(t, router, http.MethodPost, "/events/"+orig.ID+"/correct", EventRequest{Date: "2025-03-01", Title: "Servo test"})
	if w.Code != http.StatusCreated {
		t.Fatalf("correct status = %d, body = %s", w.Code, w.Body.String())
	}
	fixed := decode[models.TimelineEvent](t, w)
	if fixed.ID != orig.ID || fixed.Source != models.SourceCorrection {
		t.Errorf("fixed = %+v", fixed)
	}

	w = do(t, router, http.MethodGet, "/events?include_archived=true", nil)
	if list := decode[EventListResponse](t, w); list.Total != 2 || !list.Events[0].Archived {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodPost, "/events/"+orig.ID+"/archive", nil)
	if w.Code != http.StatusOK {
		t.Errorf("archive status = %d", w.Code)
	}
}

func TestCorrectTwiceThenArchive(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/events", EventRequest{Date: "2025-03-01", Title: "v0"})
	orig := decode[models.TimelineEvent](t, w)

	for _, title := range []string{"v1", "v2"} {
		w = do(t, router, http.MethodPost, "/events/"+orig.ID+"/correct", EventRequest{Date: "2025-03-01", Title: title})
		if w.Code != http.StatusCreated {
			t.Fatalf("correct %s status = %d, body = %s", title, w.Code, w.Body.String())
		}
	}
	w = do(t, router, http.MethodGet, "/events", nil)
	if list := decode[EventListResponse](t, w); list.Total != 1 || list.Events[0].Title != "v2" {
		t.Fatalf("active after corrections = %+v", list)
	}

	w = do(t, router, http.MethodPost, "/events/"+orig.ID+"/archive", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/events", nil)
	if list := decode[EventListResponse](t, w); list.Total != 0 {
		t.Errorf("active after archive = %+v", list)
	}
}

func TestArchiveAndCorrect_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/events/nope/archive", nil); w.Code != http.StatusNotFound {
		t.Errorf("archive missing = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/events/nope/correct", EventRequest{Date: "2025-01-01", Title: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("correct missing = %d, want 404", w.Code)
	}
}

func TestSearchAndTags(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/events", EventRequest{Date: "2025-01-02", Title: "Kanji drills", Tags: []string{"japanese"}})
	do(t, router, http.MethodPost, "/events", EventRequest{Date: "2025-01-03", Title: "Open mat", Tags: []string{"bjj", "japanese"}})

	w := do(t, router, http.MethodGet, "/search?q=Kanji", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	if res := decode[SearchResponse](t, w); len(res.Results) != 1 {
		t.Errorf("results = %+v", res)
	}

	w = do(t, router, http.MethodGet, "/tags", nil)
	tags := decode[TagsResponse](t, w)
	if len(tags.Tags) != 2 || tags.Tags[0].Tag != "japanese" || tags.Tags[0].Count != 2 {
		t.Errorf("tags = %+v", tags)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestMonthArcFormats(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/events", EventRequest{Date: "2025-01-02", Title: "Open mat", Tags: []string{"bjj"}})

	tests := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"", "text/markdown", "# 🟣 Monthly Arc — 2025-01-01 to 2025-01-31"},
		{"compressed", "text/plain", "Tasks✓ 0 ✅ / 0 ❌"},
		{"html", "text/html", "<pre>"},
		{"json", "application/json", `"time_window": "2025-01-01 to 2025-01-31"`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/arcs/month?start=2025-01-01&end=2025-01-31&format="+tt.format, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("content type = %q", ct)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("body missing %q:\n%s", tt.contains, w.Body.String())
			}
		})
	}
}

func TestMonthArcBadInput(t *testing.T) {
	_, router := testEnv(t, "")
	for _, target := range []string{
		"/arcs/month?start=January",
		"/arcs/month?format=pdf",
		"/arcs/month?format=terminal",
	} {
		if w := do(t, router, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", target, w.Code)
		}
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes stream headers and blocks until the client leaves.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEStream_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", blockingSSE)
	if w := do(t, router, http.MethodGet, "/events/stream", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEStream_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("SSE with valid token = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}
