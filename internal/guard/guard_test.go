package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		query    string
		role     models.Role
		action   Action
		location string
	}{
		{
			name:   "anonymous visitor on public page passes",
			path:   "/",
			role:   models.RoleNone,
			action: Allow,
		},
		{
			name:     "anonymous visitor on dashboard bounces to login",
			path:     "/dashboard",
			role:     models.RoleNone,
			action:   RedirectToLogin,
			location: "/login",
		},
		{
			name:     "role segment in path carries over as login hint",
			path:     "/dashboard/farmer",
			role:     models.RoleNone,
			action:   RedirectToLogin,
			location: "/login?role=farmer",
		},
		{
			name:     "buyer path hint",
			path:     "/dashboard/buyer",
			role:     models.RoleNone,
			action:   RedirectToLogin,
			location: "/login?role=buyer",
		},
		{
			name:     "query parameter hint when path has none",
			path:     "/dashboard/settings",
			query:    "role=buyer",
			role:     models.RoleNone,
			action:   RedirectToLogin,
			location: "/login?role=buyer",
		},
		{
			name:     "unknown role segment yields no hint",
			path:     "/dashboard/admin",
			role:     models.RoleNone,
			action:   RedirectToLogin,
			location: "/login",
		},
		{
			name:   "farmer reaches farmer dashboard",
			path:   "/dashboard/farmer",
			role:   models.RoleFarmer,
			action: Allow,
		},
		{
			name:   "buyer reaches any dashboard path",
			path:   "/dashboard/farmer",
			role:   models.RoleBuyer,
			action: Allow,
		},
		{
			name:     "signed-in farmer visiting login bounces to own dashboard",
			path:     "/login",
			role:     models.RoleFarmer,
			action:   RedirectToDashboard,
			location: "/dashboard/farmer",
		},
		{
			name:     "signed-in buyer visiting login bounces to buyer dashboard",
			path:     "/login",
			query:    "role=farmer",
			role:     models.RoleBuyer,
			action:   RedirectToDashboard,
			location: "/dashboard/buyer",
		},
		{
			name:   "anonymous visitor may view login",
			path:   "/login",
			role:   models.RoleNone,
			action: Allow,
		},
		{
			name:   "signed-in user on public page passes",
			path:   "/api/leaderboard",
			role:   models.RoleFarmer,
			action: Allow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Evaluate(tt.path, tt.query, tt.role)
			assert.Equal(t, tt.action, decision.Action)
			assert.Equal(t, tt.location, decision.Location())
		})
	}
}

func TestMiddleware(t *testing.T) {
	sessions := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, false, "")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(sessions, next)

	t.Run("anonymous dashboard request redirects with 303", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/farmer", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?role=farmer", rec.Header().Get("Location"))
	})

	t.Run("signed-in login visit redirects to dashboard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.AddCookie(signIn(t, sessions, models.RoleBuyer))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard/buyer", rec.Header().Get("Location"))
	})

	t.Run("signed-in dashboard request passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/farmer", nil)
		req.AddCookie(signIn(t, sessions, models.RoleFarmer))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("mangled cookie reads as anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/farmer", nil)
		req.AddCookie(&http.Cookie{Name: "stubblex-session", Value: "garbage"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

// signIn mints a session cookie the way a successful verification would.
func signIn(t *testing.T, sessions *session.Manager, role models.Role) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, sessions.SignIn(rec, req, role, "9876543210"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}
