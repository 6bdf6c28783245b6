package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/KARTIK027-CODE/StubbleX/internal/auth"
	"github.com/KARTIK027-CODE/StubbleX/internal/guard"
	"github.com/KARTIK027-CODE/StubbleX/internal/metrics"
	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/session"
	"github.com/KARTIK027-CODE/StubbleX/internal/store"
)

type AuthHandler struct {
	Auth     *auth.Authenticator
	Sessions *session.Manager
	Store    *store.Store
	Registry *Registry
}

type sendOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTP         string `json:"otp"`
	Role        string `json:"role"`
}

type registerRequest struct {
	PhoneNumber     string `json:"phone_number"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	LocationPincode string `json:"location_pincode"`
}

// SendOTP issues a challenge for the phone. Validation failures stay in
// PhoneEntry with a 400; in demo mode the response echoes the code.
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Auth.SendCode(req.PhoneNumber)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to issue OTP", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send OTP. Try again.")
		return
	}

	metrics.OTPSent.Inc()
	resp := map[string]string{
		"status":  "success",
		"message": "OTP sent successfully",
	}
	if result.DemoCode != "" {
		// Demo mode only: lets the flow run without an SMS gateway.
		resp["otp"] = result.DemoCode
	}
	writeJSON(w, http.StatusOK, resp)
}

// VerifyOTP consumes the outstanding challenge and, on success, writes
// the selected role into the session. The response carries the dashboard
// root so the client performs a full navigation and the route guard
// re-evaluates with the fresh session.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	role := models.ParseRole(req.Role)
	user, err := h.Auth.VerifyCode(req.PhoneNumber, req.OTP, role)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidPhone), errors.Is(err, auth.ErrInvalidRole):
			metrics.OTPVerifications.WithLabelValues("invalid").Inc()
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrCodeMismatch), errors.Is(err, auth.ErrNoChallenge), errors.Is(err, auth.ErrChallengeExpired):
			metrics.OTPVerifications.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			metrics.OTPVerifications.WithLabelValues("error").Inc()
			slog.Error("OTP verification failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Verification failed. Try again.")
		}
		return
	}

	// Sole write of the session store outside sign-out.
	if err := h.Sessions.SignIn(w, r, role, user.Phone); err != nil {
		slog.Error("Failed to save session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	metrics.OTPVerifications.WithLabelValues("verified").Inc()
	slog.Info("Login successful", "phone", user.Phone, "role", role)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "success",
		"message":  "OTP verified",
		"redirect": role.DashboardPath(),
	})
}

// Register fills in the marketplace profile for a phone number.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	role := models.ParseRole(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, auth.ErrInvalidRole.Error())
		return
	}

	user := &models.User{
		Phone:           req.PhoneNumber,
		Name:            req.Name,
		Role:            role,
		LocationPincode: req.LocationPincode,
	}
	if err := h.Store.UpsertUser(user); err != nil {
		slog.Error("Failed to register user", "error", err)
		writeError(w, http.StatusInternalServerError, "Registration failed. Try again.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Logout destroys the session and the workspace behind it, clearing every
// piece of locally held client state at once.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := h.Sessions.WorkspaceID(r); id != "" {
		h.Registry.Drop(id)
	}
	if err := h.Sessions.SignOut(w, r); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "success",
		"redirect": guard.LoginPath,
	})
}

// Login reports the default role tab for the login view. Visits by a
// signed-in user never reach here: the guard bounces them to their own
// dashboard first.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	hint := models.ParseRole(r.URL.Query().Get("role"))
	defaultTab := models.RoleFarmer
	if hint.Valid() {
		defaultTab = hint
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"default_role": string(defaultTab),
	})
}
