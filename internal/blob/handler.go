package blob

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sheetdrop/sheetdrop/pkg/handlers"
	"github.com/sheetdrop/sheetdrop/pkg/routes"
)

// Handler serves the presigned upload/download surface of the filesystem
// blob store. A hosted object store provides this surface itself; this
// handler stands in for it in development and single-node deployments.
type Handler struct {
	sys     System
	logger  *slog.Logger
	maxSize int64
}

// NewHandler creates a blob handler enforcing the given upload size cap.
func NewHandler(sys System, logger *slog.Logger, maxSize int64) *Handler {
	return &Handler{
		sys:     sys,
		logger:  logger.With("handler", "blob"),
		maxSize: maxSize,
	}
}

// Routes returns the blob endpoint route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/blob",
		Tags:        []string{"Blob"},
		Description: "Presigned blob upload and download",
		Routes: []routes.Route{
			{Method: "PUT", Pattern: "/{key...}", Handler: h.Upload},
			{Method: "GET", Pattern: "/{key...}", Handler: h.Download},
		},
	}
}

// Upload accepts the bytes for a previously presigned PUT.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	contentType := r.Header.Get("Content-Type")

	if err := h.verify(r, "PUT", key, contentType); err != nil {
		handlers.RespondError(w, h.logger, mapVerifyStatus(err), err)
		return
	}

	if r.ContentLength > h.maxSize {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
			errors.New("upload exceeds maximum size"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxSize+1))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if int64(len(data)) > h.maxSize {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
			errors.New("upload exceeds maximum size"))
		return
	}

	if err := h.sys.Store(r.Context(), key, data); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	h.logger.Info("blob stored", "key", key, "size", len(data))
	w.WriteHeader(http.StatusOK)
}

// Download streams the bytes for a previously presigned GET.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if err := h.verify(r, "GET", key, ""); err != nil {
		handlers.RespondError(w, h.logger, mapVerifyStatus(err), err)
		return
	}

	data, err := h.sys.Retrieve(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			handlers.RespondError(w, h.logger, http.StatusNotFound, err)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (h *Handler) verify(r *http.Request, method, key, contentType string) error {
	query := r.URL.Query()

	expires, err := strconv.ParseInt(query.Get(ParamExpires), 10, 64)
	if err != nil {
		return ErrBadSignature
	}

	signedType := query.Get(ParamContentType)
	if method == "PUT" && signedType != contentType {
		return ErrBadSignature
	}

	return h.sys.Verify(method, key, signedType, expires, query.Get(ParamSignature))
}

func mapVerifyStatus(err error) int {
	switch {
	case errors.Is(err, ErrExpired):
		return http.StatusForbidden
	case errors.Is(err, ErrBadSignature):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
