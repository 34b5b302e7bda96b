package convert

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/internal/jobs"
	"github.com/sheetdrop/sheetdrop/pkg/handlers"
	"github.com/sheetdrop/sheetdrop/pkg/pagination"
	"github.com/sheetdrop/sheetdrop/pkg/routes"
)

// Handler provides the conversion job HTTP endpoints.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a conversion handler.
func NewHandler(sys System, logger *slog.Logger, paginationCfg pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "convert"),
		pagination: paginationCfg,
	}
}

// Routes returns the job endpoint route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "",
		Tags:        []string{"Jobs"},
		Description: "PDF to spreadsheet conversion jobs",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/jobs", Handler: h.RequestUpload},
			{Method: "POST", Pattern: "/jobs/{id}/confirm", Handler: h.ConfirmUpload},
			{Method: "GET", Pattern: "/jobs", Handler: h.List},
			{Method: "GET", Pattern: "/jobs/{id}", Handler: h.Get},
			{Method: "GET", Pattern: "/jobs/{id}/download", Handler: h.Download},
		},
	}
}

// RequestUpload starts the upload handshake.
func (h *Handler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	owner, err := handlers.Owner(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	grant, err := h.sys.RequestUpload(r.Context(), owner, req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, grant)
}

// ConfirmUpload finalizes the handshake and enqueues the job.
func (h *Handler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	job, err := h.sys.ConfirmUpload(r.Context(), owner, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, job)
}

// Get returns a single job record.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	job, err := h.sys.Find(r.Context(), owner, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, job)
}

// List returns the caller's jobs, optionally filtered by status.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, err := handlers.Owner(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	query := r.URL.Query()
	if v := query.Get("status"); v != "" && !jobs.Status(v).Valid() {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("unknown status %q", v))
		return
	}

	filters := jobs.FiltersFromQuery(query)
	page := pagination.PageRequestFromQuery(query, h.pagination)
	result, err := h.sys.List(r.Context(), owner, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Download redirects to a presigned URL for the completed spreadsheet.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}

	url, err := h.sys.DownloadURL(r.Context(), owner, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) ownerAndID(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	owner, err := handlers.Owner(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return "", uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return "", uuid.Nil, false
	}

	return owner, id, true
}
