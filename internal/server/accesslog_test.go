package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"nhooyr.io/websocket"
)

// lockedBuffer lets the handler goroutines and the test share a log sink.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decoding log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func (b *lockedBuffer) find(t *testing.T, msg, path string) (map[string]any, bool) {
	t.Helper()
	for _, m := range b.lines(t) {
		if m["msg"] == msg && m["path"] == path {
			return m, true
		}
	}
	return nil, false
}

func newAccessLogServer(t *testing.T, sink *lockedBuffer) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(newStructuredLogger(logger))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/thing", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no thing")
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestAccessLogLevels(t *testing.T) {
	var sink lockedBuffer
	srv := newAccessLogServer(t, &sink)

	for _, path := range []string{"/healthz", "/api/thing"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	tests := []struct {
		path      string
		wantLevel string
		wantCode  float64
	}{
		{"/healthz", "DEBUG", http.StatusOK},
		{"/api/thing", "INFO", http.StatusNotFound},
	}
	for _, tt := range tests {
		line, ok := sink.find(t, "http request", tt.path)
		if !ok {
			t.Errorf("no access line for %s", tt.path)
			continue
		}
		if line["level"] != tt.wantLevel || line["status"] != tt.wantCode {
			t.Errorf("%s logged as %v status %v", tt.path, line["level"], line["status"])
		}
		if line["request_id"] == "" {
			t.Errorf("%s has no request id", tt.path)
		}
	}
}

func TestAccessLogWebSocketSession(t *testing.T) {
	var sink lockedBuffer
	srv := newAccessLogServer(t, &sink)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, ok := sink.find(t, "websocket upgrade", "/ws"); !ok {
		t.Error("upgrade was not logged")
	}
	if _, ok := sink.find(t, "websocket session", "/ws"); ok {
		t.Error("session logged before it ended")
	}

	time.Sleep(20 * time.Millisecond)
	conn.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(2 * time.Second)
	for {
		line, ok := sink.find(t, "websocket session", "/ws")
		if ok {
			if line["level"] != "INFO" {
				t.Errorf("session level = %v", line["level"])
			}
			if ms, _ := line["session_ms"].(float64); ms < 20 {
				t.Errorf("session_ms = %v, want at least 20", line["session_ms"])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session end was not logged")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := sink.find(t, "http request", "/ws"); ok {
		t.Error("accepted upgrade was also logged as a plain request")
	}
}
