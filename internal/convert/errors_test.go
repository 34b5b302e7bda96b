package convert_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sheetdrop/sheetdrop/internal/convert"
	"github.com/sheetdrop/sheetdrop/internal/jobs"
	"github.com/sheetdrop/sheetdrop/internal/quota"
	"github.com/sheetdrop/sheetdrop/pkg/handlers"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no owner", handlers.ErrNoOwner, http.StatusUnauthorized},
		{"forbidden", convert.ErrForbidden, http.StatusForbidden},
		{"not found", jobs.ErrNotFound, http.StatusNotFound},
		{"invalid transition", jobs.ErrInvalidTransition, http.StatusConflict},
		{"no upload", convert.ErrNoUpload, http.StatusConflict},
		{"not ready", convert.ErrNotReady, http.StatusConflict},
		{"too large", convert.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{"unsupported type", convert.ErrUnsupportedType, http.StatusUnprocessableEntity},
		{"quota exceeded", quota.ErrExceeded, http.StatusTooManyRequests},
		{"wrapped", fmt.Errorf("context: %w", convert.ErrUnsupportedType), http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convert.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
