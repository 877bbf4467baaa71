package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bifrost/api/config"
	"bifrost/api/guard"
	"bifrost/api/hub"
	"bifrost/api/model"
	"bifrost/api/session"
	"bifrost/api/sshconn"
	"bifrost/api/stream"
)

// Conn is the slice of an SSH client the handlers need: start the setup
// pipeline, release the transport.
type Conn interface {
	Start(pipeline string) (stream.Source, error)
	Close()
}

// Dialer opens an authenticated connection to a remote host. Swapped out
// in tests.
type Dialer func(ctx context.Context, cred model.Credential) (Conn, error)

type Handler struct {
	cfg      *config.Config
	sessions *session.Store
	guard    *guard.Guard
	ws       *hub.Hub
	dial     Dialer
	started  time.Time
}

func New(cfg *config.Config, sessions *session.Store, g *guard.Guard, ws *hub.Hub) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		guard:    g,
		ws:       ws,
		dial:     dialSSH,
		started:  time.Now(),
	}
}

func dialSSH(ctx context.Context, cred model.Credential) (Conn, error) {
	c, err := sshconn.Dial(ctx, cred)
	if err != nil {
		return nil, err
	}
	return sshConn{c}, nil
}

type sshConn struct {
	c *sshconn.Client
}

func (s sshConn) Start(pipeline string) (stream.Source, error) {
	cmd, err := s.c.Start(pipeline)
	if err != nil {
		return stream.Source{}, err
	}
	return stream.Source{
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
		Wait:   cmd.Wait,
		Close:  cmd.Close,
	}, nil
}

func (s sshConn) Close() { s.c.Close() }

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
