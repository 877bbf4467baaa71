package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"bifrost/api/guard"
	"bifrost/api/hub"
	"bifrost/api/model"
	"bifrost/api/sshconn"
	"bifrost/api/stream"
	"bifrost/api/workspace"
)

// Trigger runs the setup script on the remote host and streams its output
// back as newline-delimited JSON events. The response always ends with
// exactly one error or success line.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req model.TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// Malformed input fails before any connection is opened.
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := guard.Key(req.Host, req.RunName)
	if err := h.guard.TryAcquire(key); err != nil {
		if errors.Is(err, guard.ErrDuplicate) {
			h.ws.Broadcast(hub.Event{Type: "run.rejected", RunID: "", Payload: map[string]string{
				"runName": req.RunName,
				"host":    req.Host,
				"reason":  "duplicate",
			}})
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(model.Event{Type: model.EventStatus, Message: "already running"})
			return
		}
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	runID := uuid.NewString()
	log.Printf("trigger: run %s (%q) for %s@%s", runID, req.RunName, req.User, req.Host)
	h.ws.Broadcast(hub.Event{Type: "run.accepted", RunID: runID, Payload: map[string]string{
		"runName": req.RunName,
		"host":    req.Host,
	}})

	ew := newEventWriter(w)
	ew.status("connecting to " + req.Host)

	conn, err := h.dial(r.Context(), req.Credential())
	if err != nil {
		f := sshconn.Classify(err)
		ew.terminal(model.EventError, f.Error())
		h.finish(runID, req.RunName, string(model.EventError))
		return
	}
	defer conn.Close()

	env := workspace.Plan(req.RunName, req.User, req.TargetDir, h.cfg.SetupScript, time.Now())
	ew.status(fmt.Sprintf("starting %s in %s", req.Descriptor, env.Path))

	src, err := conn.Start(env.Pipeline())
	if err != nil {
		f := sshconn.Classify(err)
		ew.terminal(model.EventError, f.Error())
		h.finish(runID, req.RunName, string(model.EventError))
		return
	}

	// Drain to completion even if the caller has stopped reading: a
	// disconnected consumer does not terminate the remote process.
	outcome := model.EventSuccess
	for ev := range stream.Run(src, h.cfg.Sentinel) {
		if ev.Type == model.EventError {
			outcome = model.EventError
		}
		ew.event(ev)
	}

	log.Printf("trigger: run %s finished (%s)", runID, outcome)
	h.finish(runID, req.RunName, string(outcome))
}

func (h *Handler) finish(runID, runName, outcome string) {
	h.ws.Broadcast(hub.Event{Type: "run.finished", RunID: runID, Payload: map[string]string{
		"runName": runName,
		"outcome": outcome,
	}})
}

// eventWriter emits NDJSON events and flushes after each one so the caller
// sees output as it is produced. Write errors are swallowed: the stream
// keeps draining for the remote side's sake.
type eventWriter struct {
	enc     *json.Encoder
	flusher http.Flusher
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	ew := &eventWriter{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		ew.flusher = f
	}
	return ew
}

func (ew *eventWriter) event(ev model.Event) {
	ew.enc.Encode(ev)
	if ew.flusher != nil {
		ew.flusher.Flush()
	}
}

func (ew *eventWriter) status(msg string) {
	ew.event(model.Event{Type: model.EventStatus, Message: msg})
}

func (ew *eventWriter) terminal(t model.EventType, msg string) {
	ew.event(model.Event{Type: t, Message: msg})
}
