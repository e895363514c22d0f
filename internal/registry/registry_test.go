package registry

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/manno/shipmate/internal/fault"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"widget", "widget"},
		{"  My Widget  ", "my-widget"},
		{"acme/widget", "acme-widget"},
		{"Widget_2.0", "widget_2.0"},
		{"!!!", ""},
		{"", ""},
		{"---widget---", "widget"},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func newTestHarbor(t *testing.T, handler http.Handler) *Harbor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	h, err := NewHarbor(srv.URL, "admin", "secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewHarbor failed: %v", err)
	}
	return h
}

func TestHarborExists(t *testing.T) {
	h := newTestHarbor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.URL.Query().Get("project_name") == "widget" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	ok, err := h.Exists(context.Background(), "widget")
	if err != nil || !ok {
		t.Fatalf("expected widget to exist, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Exists(context.Background(), "missing")
	if err != nil {
		t.Fatalf("absence must not be an error, got %v", err)
	}
	if ok {
		t.Error("expected missing project to not exist")
	}
}

func TestHarborExistsUnauthorized(t *testing.T) {
	h := newTestHarbor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := h.Exists(context.Background(), "widget")
	if !fault.Is(err, fault.Unauthorized) {
		t.Errorf("expected Unauthorized fault, got %v", err)
	}
}

func TestHarborCreate(t *testing.T) {
	var sawAuth bool
	h := newTestHarbor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_, _, sawAuth = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
	}))

	if err := h.Create(context.Background(), "widget"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !sawAuth {
		t.Error("expected basic auth on create")
	}
}

func TestHarborCreateConflictIsIdempotent(t *testing.T) {
	h := newTestHarbor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	if err := h.Create(context.Background(), "widget"); err != nil {
		t.Fatalf("conflict on create must be treated as success, got %v", err)
	}
}
