// Package guard decides, per request, whether a visitor may reach a
// role-scoped area. The decision is a pure function of the request path,
// its query, and the current role; the guard never mutates the session.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/KARTIK027-CODE/StubbleX/internal/metrics"
	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/session"
)

const (
	// ProtectedPrefix is the dashboard root. All matching is prefix-based.
	ProtectedPrefix = "/dashboard"
	// LoginPath is the sole auth-sensitive anonymous route.
	LoginPath = "/login"
)

// Action enumerates what the guard wants done with a request.
type Action int

const (
	Allow Action = iota
	RedirectToLogin
	RedirectToDashboard
)

// Decision is the guard's verdict. RoleHint accompanies RedirectToLogin
// when the path or query encodes a role; Role accompanies
// RedirectToDashboard.
type Decision struct {
	Action   Action
	RoleHint models.Role // may be RoleNone: the login view falls back to its default tab
	Role     models.Role
}

// Location renders the redirect target for non-Allow decisions.
func (d Decision) Location() string {
	switch d.Action {
	case RedirectToLogin:
		if d.RoleHint.Valid() {
			return LoginPath + "?role=" + string(d.RoleHint)
		}
		return LoginPath
	case RedirectToDashboard:
		return d.Role.DashboardPath()
	default:
		return ""
	}
}

// Evaluate gates a single request. Paths under the protected prefix need
// a role; the login entry point bounces role holders straight to their
// own dashboard; everything else passes.
func Evaluate(path, rawQuery string, role models.Role) Decision {
	if strings.HasPrefix(path, ProtectedPrefix) {
		if !role.Valid() {
			return Decision{Action: RedirectToLogin, RoleHint: roleHint(path, rawQuery)}
		}
		return Decision{Action: Allow}
	}

	if strings.HasPrefix(path, LoginPath) && role.Valid() {
		return Decision{Action: RedirectToDashboard, Role: role}
	}

	return Decision{Action: Allow}
}

// roleHint derives the login role tab: first from a role segment embedded
// in the path, then from an explicit query parameter. Absence of both is
// not an error; the hint is simply omitted.
func roleHint(path, rawQuery string) models.Role {
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if role := models.ParseRole(segment); role.Valid() {
			return role
		}
	}
	if values, err := url.ParseQuery(rawQuery); err == nil {
		return models.ParseRole(values.Get("role"))
	}
	return models.RoleNone
}

// Middleware adapts Evaluate to the HTTP layer, answering redirects with
// 303 so the client re-requests with GET.
func Middleware(sessions *session.Manager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := Evaluate(r.URL.Path, r.URL.RawQuery, sessions.Role(r))
		if decision.Action == Allow {
			next.ServeHTTP(w, r)
			return
		}
		if decision.Action == RedirectToLogin {
			metrics.GuardRedirects.WithLabelValues("login").Inc()
		} else {
			metrics.GuardRedirects.WithLabelValues("dashboard").Inc()
		}
		http.Redirect(w, r, decision.Location(), http.StatusSeeOther)
	})
}
