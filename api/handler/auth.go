package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bifrost/api/model"
	"bifrost/api/session"
	"bifrost/api/sshconn"
)

type sessionKey struct{}

// Login verifies the credential against the remote host by opening (and
// immediately releasing) an SSH connection, then issues a session token.
// The password itself is never stored.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.dial(r.Context(), model.Credential{Host: req.Host, User: req.User, Password: req.Password})
	if err != nil {
		f := sshconn.Classify(err)
		http.Error(w, f.Error(), faultStatus(f))
		return
	}
	conn.Close()

	rec, err := h.sessions.Issue(req.Host, req.User)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, model.LoginResponse{Token: rec.Token, ExpiresAt: rec.ExpiresAt})
}

// GetSession echoes the fields of the validated session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	rec := sessionFrom(r.Context())
	writeJSON(w, rec)
}

// Logout revokes the presented token. Revoking twice is fine.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	rec := sessionFrom(r.Context())
	h.sessions.Revoke(rec.Token)
	writeJSON(w, map[string]string{"status": "ok"})
}

// RequireSession rejects requests without a valid bearer token. Validation
// fails closed: missing and expired tokens look the same to the caller.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		rec, ok := h.sessions.Validate(token)
		if !ok {
			http.Error(w, "invalid or expired session", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, rec)))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func sessionFrom(ctx context.Context) session.Record {
	rec, _ := ctx.Value(sessionKey{}).(session.Record)
	return rec
}

// faultStatus maps a classified connection fault onto an HTTP status.
func faultStatus(f *sshconn.Fault) int {
	switch f.Kind {
	case sshconn.AuthenticationFailure:
		return http.StatusUnauthorized
	case sshconn.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
