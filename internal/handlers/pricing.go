package handlers

import (
	"net/http"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/session"
)

type PriceHandler struct {
	Sessions *session.Manager
	Registry *Registry
}

func (h *PriceHandler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	if !h.Sessions.Role(r).Valid() {
		writeError(w, http.StatusUnauthorized, "Sign in to get price estimates")
		return nil, false
	}
	id := h.Sessions.WorkspaceID(r)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "Sign in to get price estimates")
		return nil, false
	}
	return h.Registry.Get(id), true
}

// Update records one edit of the estimate inputs. The request is
// debounced behind the quiescence window, so the 202 means "noted", not
// "refreshed". The snapshot carries whatever is currently displayed.
func (h *PriceHandler) Update(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	var query models.PriceQuery
	if err := decodeJSON(r, &query); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if query.WasteType == "" {
		writeError(w, http.StatusBadRequest, "waste_type is required")
		return
	}
	if query.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	ws.Estimator.Update(query)
	writeJSON(w, http.StatusAccepted, ws.Estimator.Snapshot())
}

// Snapshot returns the displayed estimate plus refresh indicators.
func (h *PriceHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Estimator.Snapshot())
}
