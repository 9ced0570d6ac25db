// Package handler exposes session lifecycle operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auditdomain "sessionguard/internal/audit/domain"
	"sessionguard/internal/clientip"
	"sessionguard/internal/session/domain"
	userdomain "sessionguard/internal/user/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// SessionService is the manager surface used by the HTTP routes.
type SessionService interface {
	Creator
	ValidateSession(ctx context.Context, token string, req clientip.Request) (*domain.Session, error)
	InvalidateSession(ctx context.Context, token string) (bool, error)
	InvalidateUserSession(ctx context.Context, userID, sessionID string) error
	InvalidateAllUserSessions(ctx context.Context, userID string) (int, error)
	ValidateRememberToken(ctx context.Context, token string) (string, error)
	InvalidateRememberToken(ctx context.Context, token string) (bool, error)
	RotatesRememberTokens() bool
	GetUserActiveSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	GetSessionPreferences(ctx context.Context, userID string) (userdomain.SessionPolicy, error)
	UpdateSessionPreferences(ctx context.Context, userID string, prefs userdomain.Preferences) (userdomain.SessionPolicy, error)
	ListSecurityEvents(ctx context.Context, userID string, limit, offset int32) ([]*auditdomain.SecurityEvent, error)
}

// Handler serves the /v1/sessions routes.
type Handler struct {
	svc     SessionService
	issuer  *Issuer
	cookies Cookies
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc SessionService, cookies Cookies) *Handler {
	return &Handler{svc: svc, issuer: NewIssuer(svc, cookies), cookies: cookies}
}

// Issuer returns the Issuer used by this handler, for the external login flow.
func (h *Handler) Issuer() *Issuer {
	return h.issuer
}

// Routes returns the router for all session endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/v1/sessions/remember", h.exchangeRemember)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)
		r.Get("/v1/sessions", h.listSessions)
		r.Delete("/v1/sessions", h.invalidateAll)
		r.Get("/v1/sessions/current", h.currentSession)
		r.Delete("/v1/sessions/current", h.logout)
		r.Get("/v1/sessions/preferences", h.getPreferences)
		r.Put("/v1/sessions/preferences", h.updatePreferences)
		r.Get("/v1/sessions/events", h.listEvents)
		r.Delete("/v1/sessions/{id}", h.invalidateOne)
	})
	return r
}

type ctxKey int

const sessionKey ctxKey = iota

// SessionFromContext returns the session validated by RequireSession, or nil.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey).(*domain.Session)
	return s
}

// RequireSession validates the bearer token or session cookie and stores the session in the request context.
// Requests without a valid session get 401.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeUnauthorized(w)
			return
		}
		s, err := h.svc.ValidateSession(r.Context(), token, clientip.HTTP(r))
		if err != nil {
			WriteError(w, err)
			return
		}
		if s == nil {
			h.cookies.clear(w, SessionCookie)
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
	})
}

// exchangeRemember trades the remember-me cookie for a new session. When tokens rotate on use the
// old token is already revoked, so a replacement is minted with the session.
func (h *Handler) exchangeRemember(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, RememberCookie)
	if token == "" {
		writeUnauthorized(w)
		return
	}
	userID, err := h.svc.ValidateRememberToken(r.Context(), token)
	if err != nil {
		WriteError(w, err)
		return
	}
	if userID == "" {
		h.cookies.clear(w, RememberCookie)
		writeUnauthorized(w)
		return
	}
	created, err := h.issuer.Issue(w, r, userID, h.svc.RotatesRememberTokens())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(created.Session, created.Session.ID))
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	s := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, toSessionView(s, s.ID))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.InvalidateSession(r.Context(), sessionToken(r)); err != nil {
		WriteError(w, err)
		return
	}
	if rt := cookieValue(r, RememberCookie); rt != "" {
		if _, err := h.svc.InvalidateRememberToken(r.Context(), rt); err != nil {
			WriteError(w, err)
			return
		}
	}
	h.cookies.clear(w, SessionCookie)
	h.cookies.clear(w, RememberCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())
	list, err := h.svc.GetUserActiveSessions(r.Context(), cur.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		out = append(out, toSessionView(s, cur.ID))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (h *Handler) invalidateAll(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())
	n, err := h.svc.InvalidateAllUserSessions(r.Context(), cur.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.cookies.clear(w, SessionCookie)
	h.cookies.clear(w, RememberCookie)
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": n})
}

func (h *Handler) invalidateOne(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.svc.InvalidateUserSession(r.Context(), cur.UserID, id); err != nil {
		WriteError(w, err)
		return
	}
	if id == cur.ID {
		h.cookies.clear(w, SessionCookie)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())
	p, err := h.svc.GetSessionPreferences(r.Context(), cur.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreferencesView(p))
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())
	var prefs userdomain.Preferences
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&prefs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	p, err := h.svc.UpdateSessionPreferences(r.Context(), cur.UserID, prefs)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreferencesView(p))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	cur := SessionFromContext(r.Context())
	limit := queryInt(r, "limit", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := min(max(queryInt(r, "offset", 0), 0), math.MaxInt32)
	list, err := h.svc.ListSecurityEvents(r.Context(), cur.UserID, int32(limit), int32(offset))
	if err != nil {
		WriteError(w, err)
		return
	}
	out := make([]eventView, 0, len(list))
	for _, e := range list {
		out = append(out, toEventView(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
