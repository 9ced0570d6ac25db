package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	auditdomain "sessionguard/internal/audit/domain"
	"sessionguard/internal/session/domain"
	"sessionguard/internal/session/service"
	userdomain "sessionguard/internal/user/domain"
)

type errorBody struct {
	Error     string   `json:"error"`
	Reason    string   `json:"reason,omitempty"`
	RiskScore *int     `json:"riskScore,omitempty"`
	Factors   []string `json:"factors,omitempty"`
}

// WriteError maps a manager error to an HTTP status and JSON body.
func WriteError(w http.ResponseWriter, err error) {
	var blocked *service.BlockedError
	switch {
	case errors.As(err, &blocked):
		score := blocked.RiskScore
		if errors.Is(err, service.ErrPersistence) {
			log.Printf("session: blocked after risk analysis failure: %v", err)
		}
		writeJSON(w, http.StatusForbidden, errorBody{
			Error: "session blocked", Reason: blocked.Reason, RiskScore: &score, Factors: blocked.Factors,
		})
	case errors.Is(err, service.ErrPolicyViolation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "session not found"})
	default:
		log.Printf("session: request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("session: write response: %v", err)
	}
}

type sessionView struct {
	ID             string    `json:"id"`
	DeviceType     string    `json:"deviceType"`
	Browser        string    `json:"browser"`
	BrowserVersion string    `json:"browserVersion"`
	OS             string    `json:"os"`
	OSVersion      string    `json:"osVersion"`
	IPAddress      string    `json:"ipAddress"`
	Location       string    `json:"location,omitempty"`
	Current        bool      `json:"current"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func toSessionView(s *domain.Session, currentID string) sessionView {
	return sessionView{
		ID:             s.ID,
		DeviceType:     s.DeviceType,
		Browser:        s.Browser,
		BrowserVersion: s.BrowserVersion,
		OS:             s.OS,
		OSVersion:      s.OSVersion,
		IPAddress:      s.IPAddress,
		Location:       s.Location,
		Current:        s.ID == currentID,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
	}
}

type preferencesView struct {
	SessionTimeout        int  `json:"sessionTimeout"`
	MaxConcurrentSessions int  `json:"maxConcurrentSessions"`
	RememberMeEnabled     bool `json:"rememberMeEnabled"`
}

func toPreferencesView(p userdomain.SessionPolicy) preferencesView {
	return preferencesView{
		SessionTimeout:        p.SessionTimeout,
		MaxConcurrentSessions: p.MaxConcurrentSessions,
		RememberMeEnabled:     p.RememberMeEnabled,
	}
}

type eventView struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	IPAddress   string    `json:"ipAddress,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	RiskScore   int       `json:"riskScore"`
	IsBlocked   bool      `json:"isBlocked"`
	BlockReason string    `json:"blockReason,omitempty"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toEventView(e *auditdomain.SecurityEvent) eventView {
	return eventView{
		ID:          e.ID,
		Type:        string(e.Type),
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		RiskScore:   e.RiskScore,
		IsBlocked:   e.IsBlocked,
		BlockReason: e.BlockReason,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}
