package handler

import (
	"net/http"
	"strings"
	"time"
)

// Cookie names shared by the HTTP surface and the external login flow.
const (
	SessionCookie  = "session_token"
	RememberCookie = "remember_token"
)

// Cookies controls how session and remember-me cookies are written.
type Cookies struct {
	Secure         bool
	SessionMaxAge  time.Duration
	RememberMaxAge time.Duration
}

// DefaultCookies returns 24h session and 30 day remember-me cookies. secure should be true in production.
func DefaultCookies(secure bool) Cookies {
	return Cookies{Secure: secure, SessionMaxAge: 24 * time.Hour, RememberMaxAge: 30 * 24 * time.Hour}
}

func (c Cookies) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken returns the bearer token from the Authorization header, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const prefix = "Bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
	}
	return cookieValue(r, SessionCookie)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil || c == nil {
		return ""
	}
	return c.Value
}
