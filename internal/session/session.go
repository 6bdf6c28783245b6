// Package session owns the client-held role assertion. It is the only
// piece of state shared between the route guard and the authenticator:
// the authenticator writes it on successful verification, sign-out clears
// it, everything else only reads.
package session

import (
	"net/http"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionName = "stubblex-session"

	keyRole      = "role"
	keyPhone     = "phone"
	keyWorkspace = "workspace_id"
)

// Manager wraps the cookie store behind explicit read/write operations so
// the role marker is never poked at through incidental global lookups.
type Manager struct {
	store *sessions.CookieStore
}

func NewManager(key []byte, ttl time.Duration, secure bool, domain string) *Manager {
	store := sessions.NewCookieStore(key)
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.Path = "/"
	store.Options.MaxAge = int(ttl.Seconds())
	if domain != "" {
		store.Options.Domain = domain
	}
	return &Manager{store: store}
}

// Role reads the current role assertion. A missing, expired, or mangled
// cookie reads as RoleNone, which is indistinguishable from "not logged
// in" and never satisfies a protected-route check.
func (m *Manager) Role(r *http.Request) models.Role {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return models.RoleNone
	}
	role, _ := session.Values[keyRole].(string)
	return models.ParseRole(role)
}

// Phone returns the signed-in phone number, empty when anonymous.
func (m *Manager) Phone(r *http.Request) string {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	phone, _ := session.Values[keyPhone].(string)
	return phone
}

// WorkspaceID identifies the client's workflow workspace. Classification
// and price-estimation instances are keyed by it.
func (m *Manager) WorkspaceID(r *http.Request) string {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	id, _ := session.Values[keyWorkspace].(string)
	return id
}

// SignIn replaces the session wholesale with the newly asserted role.
// Cookie replacement means exactly one session exists per client; roles
// never stack.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, role models.Role, phone string) error {
	session, _ := m.store.Get(r, sessionName)
	session.Values = map[interface{}]interface{}{
		keyRole:      string(role),
		keyPhone:     phone,
		keyWorkspace: uuid.New().String(),
	}
	return session.Save(r, w)
}

// SignOut expires the cookie and drops every session-held value at once,
// so no locally cached client state outlives the role marker.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, sessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1 // Expire immediately
	return session.Save(r, w)
}
