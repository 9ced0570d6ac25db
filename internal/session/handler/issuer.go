package handler

import (
	"context"
	"net/http"

	"sessionguard/internal/clientip"
	"sessionguard/internal/session/service"
)

// Creator creates sessions. *service.Manager satisfies it.
type Creator interface {
	CreateUserSession(ctx context.Context, userID string, req clientip.Request, rememberMe bool, location string) (*service.Created, error)
}

// Issuer creates a session for an already authenticated user and writes its cookies.
// The password flow lives outside this service and calls Issue after verifying credentials.
type Issuer struct {
	sessions Creator
	cookies  Cookies
}

// NewIssuer returns an Issuer writing cookies with the given settings.
func NewIssuer(sessions Creator, cookies Cookies) *Issuer {
	return &Issuer{sessions: sessions, cookies: cookies}
}

// Issue creates a session for userID from r and sets the session cookie, plus the remember-me cookie when one
// was minted. On error no cookie is written; pass the error to WriteError, which answers 403 for blocked attempts.
func (i *Issuer) Issue(w http.ResponseWriter, r *http.Request, userID string, rememberMe bool) (*service.Created, error) {
	created, err := i.sessions.CreateUserSession(r.Context(), userID, clientip.HTTP(r), rememberMe, "")
	if err != nil {
		return nil, err
	}
	i.cookies.set(w, SessionCookie, created.SessionToken, i.cookies.SessionMaxAge)
	if created.RememberToken != "" {
		i.cookies.set(w, RememberCookie, created.RememberToken, i.cookies.RememberMaxAge)
	}
	return created, nil
}
