package quota

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sheetdrop/sheetdrop/pkg/handlers"
	"github.com/sheetdrop/sheetdrop/pkg/routes"
)

// Handler provides HTTP endpoints for quota queries and billing tier updates.
type Handler struct {
	sys       System
	logger    *slog.Logger
	allotment int
}

// NewHandler creates a quota handler.
func NewHandler(sys System, logger *slog.Logger, allotment int) *Handler {
	return &Handler{
		sys:       sys,
		logger:    logger.With("handler", "quota"),
		allotment: allotment,
	}
}

// Routes returns the quota endpoint route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "",
		Tags:        []string{"Quota"},
		Description: "Quota inspection and billing tier webhook",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/quota", Handler: h.Get},
			{Method: "POST", Pattern: "/billing/tier", Handler: h.SetTier},
		},
	}
}

// Get returns the caller's quota snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, err := handlers.Owner(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	rec, err := h.sys.Get(r.Context(), owner)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec.Snapshot(h.allotment))
}

type tierUpdate struct {
	OwnerID string `json:"owner_id"`
	Tier    Tier   `json:"tier"`
}

// SetTier applies a tier change delivered by the billing collaborator.
func (h *Handler) SetTier(w http.ResponseWriter, r *http.Request) {
	var update tierUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if update.OwnerID == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("owner_id required"))
		return
	}

	rec, err := h.sys.SetTier(r.Context(), update.OwnerID, update.Tier)
	if err != nil {
		if errors.Is(err, ErrInvalidTier) {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec.Snapshot(h.allotment))
}
