package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/lorekeeper/internal/models"
)

func completionServer(t *testing.T, content string, choices bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []any{},
		}
		if choices {
			resp["choices"] = []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAISynthesize(t *testing.T) {
	srv := completionServer(t, `{"hook":"A strong start","arc":"Training paid off","turning_points":["Blue belt"]}`, true)
	p := NewOpenAI("test-key", srv.URL+"/v1", "test-model", nil)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n, err := p.Synthesize(context.Background(), []models.TimelineEvent{{Date: "2025-01-02", Title: "Blue belt"}}, start, start.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if n.Hook != "A strong start" || !reflect.DeepEqual(n.TurningPoints, []string{"Blue belt"}) {
		t.Errorf("narrative = %+v", n)
	}
}

func TestOpenAIStitchToleratesProse(t *testing.T) {
	srv := completionServer(t, "Sure! {\"hook\":\"h\",\"arc\":\"a\"} Hope that helps.", true)
	p := NewOpenAI("test-key", srv.URL+"/v1", "", nil)

	s, err := p.Stitch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if s.Hook != "h" || s.Arc != "a" {
		t.Errorf("stitched = %+v", s)
	}
}

func TestOpenAINoChoices(t *testing.T) {
	srv := completionServer(t, "", false)
	p := NewOpenAI("test-key", srv.URL+"/v1", "", nil)
	if _, err := p.Stitch(context.Background(), nil); !errors.Is(err, ErrNoChoices) {
		t.Errorf("err = %v, want ErrNoChoices", err)
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	var v struct{}
	if err := decodeJSON("no json here", &v); err == nil {
		t.Error("expected error")
	}
}
