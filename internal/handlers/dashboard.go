package handlers

import (
	"log/slog"
	"net/http"

	"github.com/KARTIK027-CODE/StubbleX/internal/session"
	"github.com/KARTIK027-CODE/StubbleX/internal/store"
)

// DashboardHandler serves the role-scoped summaries behind the route
// guard. The guard has already established the role by the time these
// run; they only assemble data.
type DashboardHandler struct {
	Sessions *session.Manager
	Store    *store.Store
	Registry *Registry
}

// Farmer summarizes the farmer's workspace: green stats, recent
// listings, and the current price estimate snapshot.
func (h *DashboardHandler) Farmer(w http.ResponseWriter, r *http.Request) {
	phone := h.Sessions.Phone(r)

	stats, err := h.Store.GetGreenStats(phone)
	if err != nil {
		slog.Error("Failed to fetch green stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching stats")
		return
	}

	listings, err := h.Store.GetListingsByPhone(phone)
	if err != nil {
		slog.Error("Failed to fetch listings", "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching listings")
		return
	}

	data := map[string]interface{}{
		"stats":    stats,
		"listings": listings,
	}
	if id := h.Sessions.WorkspaceID(r); id != "" {
		ws := h.Registry.Get(id)
		data["price_estimate"] = ws.Estimator.Snapshot()
		data["classification"] = ws.Workflow.Snapshot()
	}
	writeJSON(w, http.StatusOK, data)
}

// Buyer summarizes the active market for industrial buyers.
func (h *DashboardHandler) Buyer(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Store.GetActiveListings(50)
	if err != nil {
		slog.Error("Failed to fetch active listings", "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching listings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listings": listings,
	})
}
