package convert

import (
	"errors"
	"net/http"

	"github.com/sheetdrop/sheetdrop/internal/jobs"
	"github.com/sheetdrop/sheetdrop/internal/quota"
	"github.com/sheetdrop/sheetdrop/pkg/handlers"
)

// Domain errors for the conversion pipeline surface.
var (
	// ErrUnsupportedType rejects uploads declared as anything other than PDF.
	ErrUnsupportedType = errors.New("only application/pdf uploads are supported")

	// ErrTooLarge rejects uploads whose declared size exceeds the configured cap.
	ErrTooLarge = errors.New("declared upload size exceeds the maximum")

	// ErrForbidden indicates the job belongs to a different owner.
	ErrForbidden = errors.New("job belongs to another owner")

	// ErrNoUpload indicates a confirmation arrived before the document
	// landed at its presigned location.
	ErrNoUpload = errors.New("no uploaded document found at the source location")

	// ErrNotReady indicates a download was requested before the job completed.
	ErrNotReady = errors.New("conversion result is not ready")
)

// MapHTTPStatus translates pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, handlers.ErrNoOwner):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrInvalidTransition),
		errors.Is(err, ErrNoUpload),
		errors.Is(err, ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quota.ErrExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
