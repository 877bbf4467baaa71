package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTriggerStreamsEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/trigger" {
			t.Errorf("path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"type":"status","message":"connecting to gpu-01"}`)
		fmt.Fprintln(w, `{"type":"stdout","message":"hello"}`)
		fmt.Fprintln(w, `{"type":"success","message":"setup script finished"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	var got []Event
	err := c.Trigger(TriggerRequest{Host: "gpu-01"}, func(ev Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if len(got) != 3 || got[2].Type != "success" {
		t.Fatalf("events %+v", got)
	}
}

func TestTriggerDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintln(w, `{"type":"status","message":"already running"}`)
	}))
	defer srv.Close()

	err := New(srv.URL, "tok").Trigger(TriggerRequest{}, func(Event) {
		t.Fatal("callback invoked for a rejected trigger")
	})
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("got %v, want ErrAlreadyRunning", err)
	}
}

func TestLoginAndSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			fmt.Fprintln(w, `{"token":"abc123","expiresAt":"2026-09-28T00:00:00Z"}`)
		case "/api/session":
			fmt.Fprintln(w, `{"host":"gpu-01","user":"trainer","expiresAt":"2026-09-28T00:00:00Z"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Login("gpu-01", "trainer", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "abc123" {
		t.Fatalf("token %q", resp.Token)
	}

	c.Token = resp.Token
	s, err := c.Session()
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if s.User != "trainer" || s.Host != "gpu-01" {
		t.Fatalf("session %+v", s)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "authentication failure", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Login("h", "u", "bad")
	if err == nil || !strings.Contains(err.Error(), "authentication failure") {
		t.Fatalf("err = %v", err)
	}
}
