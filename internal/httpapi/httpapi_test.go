package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var got healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	return got
}

func TestHealthz(t *testing.T) {
	t.Run("ok with database and passing checks", func(t *testing.T) {
		mux := NewMux(openDB(t), "", Check{Name: "dataset", Check: func(context.Context) error { return nil }})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		got := decodeHealth(t, rec)
		if got.Status != "ok" || got.Checks["database"] != "ok" || got.Checks["dataset"] != "ok" {
			t.Errorf("health = %+v", got)
		}
	})

	t.Run("no database configured", func(t *testing.T) {
		mux := NewMux(nil, "")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		got := decodeHealth(t, rec)
		if rec.Code != http.StatusOK || got.Status != "ok" {
			t.Errorf("status = %d health = %+v", rec.Code, got)
		}
		if _, ok := got.Checks["database"]; ok {
			t.Error("database check reported without a database")
		}
	})

	t.Run("failing check returns 503", func(t *testing.T) {
		mux := NewMux(nil, "", Check{Name: "dataset", Check: func(context.Context) error { return errors.New("data file not found") }})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusServiceUnavailable)
		}
		if got := decodeHealth(t, rec); got.Checks["dataset"] != "data file not found" {
			t.Errorf("checks = %+v", got.Checks)
		}
	})

	t.Run("closed database returns 503", func(t *testing.T) {
		db := openDB(t)
		_ = db.Close()
		rec := httptest.NewRecorder()
		NewMux(db, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusServiceUnavailable)
		}
	})
}

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dashboard.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec := httptest.NewRecorder()
	NewMux(nil, dir).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/dashboard.css", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestServerMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	srv := NewServer(":0", handler, logger)

	t.Run("assigns a request id", func(t *testing.T) {
		logs.Reset()
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

		id := rec.Header().Get("X-Request-ID")
		if id == "" || id != seen {
			t.Errorf("header id %q, handler saw %q", id, seen)
		}
		var entry map[string]any
		if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v (%q)", err, logs.String())
		}
		if entry["path"] != "/brew" || entry["status"] != float64(http.StatusTeapot) || entry["request_id"] != id {
			t.Errorf("log entry = %v", entry)
		}
	})

	t.Run("keeps the client request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/brew", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "abc-123" || seen != "abc-123" {
			t.Errorf("request id = %q / %q; want abc-123", got, seen)
		}
	})

	t.Run("replaces an oversized request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/brew", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); len(got) != 36 {
			t.Errorf("request id = %q; want a fresh uuid", got)
		}
	})
}
