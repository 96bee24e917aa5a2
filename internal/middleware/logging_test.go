// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"blogicum/internal/session"
)

// captureLog routes the default logger into a buffer for the duration of
// the test and returns a function decoding the single record written.
func captureLog(t *testing.T) func() map[string]any {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return func() map[string]any {
		t.Helper()
		var rec map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
			t.Fatalf("decode log record %q: %v", buf.String(), err)
		}
		return rec
	}
}

func TestLoggerRecord(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		target    string
		session   *session.Data
		status    int
		wantLevel string
		wantUser  string
	}{
		{"anonymous page", http.MethodGet, "/category/travel/", nil, http.StatusOK, "INFO", ""},
		{"signed-in author", http.MethodPost, "/posts/create/", &session.Data{Username: "ann", TwoFADone: true}, http.StatusSeeOther, "INFO", "ann"},
		{"second factor pending", http.MethodGet, "/auth/2fa/verify/", &session.Data{Username: "ann"}, http.StatusOK, "INFO", ""},
		{"missing post", http.MethodGet, "/posts/x/", nil, http.StatusNotFound, "INFO", ""},
		{"server error", http.MethodGet, "/", nil, http.StatusInternalServerError, "ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := captureLog(t)
			if tt.session != nil {
				tt.session.UserID = uuid.New()
			}

			handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			if tt.session != nil {
				req = req.WithContext(WithSession(req.Context(), tt.session))
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			rec := record()
			if rec["level"] != tt.wantLevel {
				t.Errorf("level: got %v, want %s", rec["level"], tt.wantLevel)
			}
			if rec["method"] != tt.method || rec["path"] != tt.target {
				t.Errorf("method/path: got %v %v", rec["method"], rec["path"])
			}
			if status, _ := rec["status"].(float64); int(status) != tt.status {
				t.Errorf("status: got %v, want %d", rec["status"], tt.status)
			}
			if rec["remote"] != "203.0.113.7" {
				t.Errorf("remote: got %v", rec["remote"])
			}
			user, hasUser := rec["user"]
			if tt.wantUser == "" && hasUser {
				t.Errorf("user should be omitted, got %v", user)
			}
			if tt.wantUser != "" && user != tt.wantUser {
				t.Errorf("user: got %v, want %s", user, tt.wantUser)
			}
		})
	}
}

func TestLoggerImplicitOK(t *testing.T) {
	record := captureLog(t)

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Body.String() != "hello" {
		t.Errorf("body: got %q", rr.Body.String())
	}
	if status, _ := record()["status"].(float64); status != http.StatusOK {
		t.Errorf("logged status: got %v, want 200", status)
	}
}

// The wrapper must keep optional interfaces reachable through
// http.ResponseController.
func TestLoggerKeepsResponseController(t *testing.T) {
	captureLog(t)

	var flushErr error
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flushErr = http.NewResponseController(w).Flush()
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if flushErr != nil {
		t.Fatalf("Flush through the logging wrapper: %v", flushErr)
	}
	if !rr.Flushed {
		t.Error("underlying recorder was not flushed")
	}
}

func TestResponseWriterFirstStatusWins(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusSeeOther)
	rw.WriteHeader(http.StatusInternalServerError)
	rw.Write([]byte("ignored status"))

	if rw.statusCode != http.StatusSeeOther {
		t.Errorf("statusCode: got %d, want 303", rw.statusCode)
	}
}
