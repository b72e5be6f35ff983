// Package consent tracks the cookie-consent banner.
package consent

import (
	"net/http"

	"finitefield.org/storefront/internal/cookiestore"
)

const (
	// CookieName holds the JSON string "true" once the visitor accepts.
	CookieName = "cookieConsent"
	// CookieDays is the lifetime of an accepted flag.
	CookieDays = 365

	acceptedValue = "true"
)

// State is the banner state for a single page view.
type State int

const (
	// Unset shows the banner.
	Unset State = iota
	// Accepted hides the banner and persists the flag.
	Accepted
	// Declined hides the banner for the current page only.
	Declined
)

func (s State) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	default:
		return "unset"
	}
}

// BannerVisible reports whether the banner is shown in this state.
func (s State) BannerVisible() bool {
	return s == Unset
}

// Manager reads and writes the consent flag.
type Manager struct {
	cookies *cookiestore.Store
}

// NewManager constructs a Manager.
func NewManager(cookies *cookiestore.Store) *Manager {
	return &Manager{cookies: cookies}
}

// State returns Accepted when the flag is present, Unset otherwise. Declines are never
// persisted, so a request never starts out Declined.
func (m *Manager) State(r *http.Request) State {
	var flag string
	if m.cookies.Get(r, CookieName, &flag) && flag == acceptedValue {
		return Accepted
	}
	return Unset
}

// Accept persists the flag for CookieDays.
func (m *Manager) Accept(w http.ResponseWriter) (State, error) {
	if err := m.cookies.Set(w, CookieName, acceptedValue, CookieDays); err != nil {
		return Unset, err
	}
	return Accepted, nil
}

// Decline hides the banner without writing anything, so the next visit asks again.
func (m *Manager) Decline() State {
	return Declined
}
