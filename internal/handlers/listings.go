package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/session"
	"github.com/KARTIK027-CODE/StubbleX/internal/store"
	"github.com/google/uuid"
)

type ListingsHandler struct {
	Sessions *session.Manager
	Store    *store.Store
}

type createListingRequest struct {
	WasteType     string  `json:"waste_type"`
	QuantityTons  float64 `json:"quantity_tons"`
	ExpectedPrice float64 `json:"expected_price"`
}

type updateListingRequest struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
}

// List shows a farmer their own listings and a buyer the active market.
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	role := h.Sessions.Role(r)
	switch role {
	case models.RoleFarmer:
		listings, err := h.Store.GetListingsByPhone(h.Sessions.Phone(r))
		if err != nil {
			slog.Error("Failed to fetch listings", "error", err)
			writeError(w, http.StatusInternalServerError, "Error fetching listings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"listings": listings})
	case models.RoleBuyer:
		listings, err := h.Store.GetActiveListings(50)
		if err != nil {
			slog.Error("Failed to fetch active listings", "error", err)
			writeError(w, http.StatusInternalServerError, "Error fetching listings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"listings": listings})
	default:
		writeError(w, http.StatusUnauthorized, "Sign in to view listings")
	}
}

// Create adds a new waste listing for the signed-in farmer.
func (h *ListingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Sessions.Role(r) != models.RoleFarmer {
		writeError(w, http.StatusForbidden, "Only farmers can create listings")
		return
	}

	var req createListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.WasteType == "" {
		writeError(w, http.StatusBadRequest, "waste_type is required")
		return
	}
	if req.QuantityTons <= 0 {
		writeError(w, http.StatusBadRequest, "quantity_tons must be positive")
		return
	}

	listing := &models.Listing{
		Ref:           strings.Split(uuid.New().String(), "-")[0],
		Phone:         h.Sessions.Phone(r),
		WasteType:     req.WasteType,
		QuantityTons:  req.QuantityTons,
		ExpectedPrice: req.ExpectedPrice,
		Status:        "active",
	}
	if err := h.Store.CreateListing(listing); err != nil {
		slog.Error("Failed to create listing", "error", err)
		writeError(w, http.StatusInternalServerError, "Error saving listing")
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// UpdateStatus marks a farmer's own listing sold or cancelled.
func (h *ListingsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Sessions.Role(r) != models.RoleFarmer {
		writeError(w, http.StatusForbidden, "Only farmers can update listings")
		return
	}

	var req updateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	validStatuses := map[string]bool{"active": true, "sold": true, "cancelled": true}
	if !validStatuses[req.Status] {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	err := h.Store.UpdateListingStatus(req.Ref, h.Sessions.Phone(r), req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Listing not found")
			return
		}
		slog.Error("Failed to update listing", "error", err)
		writeError(w, http.StatusInternalServerError, "Error updating listing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
