package handler

import (
	"net/http"
	"time"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"sessions":  h.sessions.Len(),
		"runs":      h.guard.Len(),
		"observers": h.ws.Observers(),
	})
}
