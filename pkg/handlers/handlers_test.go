package handlers_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sheetdrop/sheetdrop/pkg/handlers"
)

func TestOwner(t *testing.T) {
	r := httptest.NewRequest("GET", "/jobs", nil)
	r.Header.Set(handlers.OwnerHeader, "user-1")

	owner, err := handlers.Owner(r)
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if owner != "user-1" {
		t.Errorf("owner = %q, want user-1", owner)
	}
}

func TestOwnerMissing(t *testing.T) {
	r := httptest.NewRequest("GET", "/jobs", nil)

	_, err := handlers.Owner(r)
	if !errors.Is(err, handlers.ErrNoOwner) {
		t.Errorf("expected ErrNoOwner, got %v", err)
	}
}

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.RespondJSON(w, http.StatusCreated, map[string]int{"count": 3})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var body map[string]int
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["count"] != 3 {
		t.Errorf("body = %v", body)
	}
}

func TestRespondError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := httptest.NewRecorder()
	handlers.RespondError(w, logger, http.StatusConflict, errors.New("already confirmed"))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "already confirmed" {
		t.Errorf("error = %q", body["error"])
	}
}
