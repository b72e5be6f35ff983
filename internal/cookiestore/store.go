// Package cookiestore persists small JSON values in browser cookies.
package cookiestore

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Store reads and writes URL-encoded JSON cookies scoped to path "/".
type Store struct {
	secure bool
	now    func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithSecure marks written cookies Secure.
func WithSecure(secure bool) Option {
	return func(s *Store) {
		s.secure = secure
	}
}

// WithClock overrides the clock used to compute expirations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set serializes value as JSON and stores it under name for the given number of days.
func (s *Store) Set(w http.ResponseWriter, name string, value any, days int) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cookiestore: encode %s: %w", name, err)
	}
	expires := s.now().Add(time.Duration(days) * day)
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    escape(string(raw)),
		Path:     "/",
		Expires:  expires.UTC(),
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get decodes the cookie stored under name into dst. A missing or malformed cookie reports false;
// absence and parse failures are not distinguished.
func (s *Store) Get(r *http.Request, name string, dst any) bool {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return false
	}
	raw, err := url.PathUnescape(c.Value)
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false
	}
	return true
}

// Delete expires the cookie immediately.
func (s *Store) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// escape percent-encodes like the browser's encodeURIComponent, so spaces become %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
