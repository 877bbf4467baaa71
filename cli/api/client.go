package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrAlreadyRunning is returned when the server rejects a trigger as a
// duplicate of a run accepted moments ago. Retryable.
var ErrAlreadyRunning = errors.New("run already in progress")

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		// No overall timeout: trigger responses stream for as long as the
		// remote run produces output.
		HTTPClient: &http.Client{},
	}
}

type Event struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Session struct {
	Host      string    `json:"host"`
	User      string    `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type TriggerRequest struct {
	Host       string `json:"host"`
	User       string `json:"user"`
	Password   string `json:"password"`
	RunName    string `json:"runName"`
	Descriptor string `json:"descriptor"`
	TargetDir  string `json:"targetDir"`
}

type Health struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Sessions  int    `json:"sessions"`
	Runs      int    `json:"runs"`
	Observers int    `json:"observers"`
}

func (c *Client) Login(host, user, password string) (*LoginResponse, error) {
	body, _ := json.Marshal(map[string]string{"host": host, "user": user, "password": password})
	req, err := http.NewRequest("POST", c.BaseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out LoginResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout() error {
	req, err := http.NewRequest("POST", c.BaseURL+"/api/logout", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) Session() (*Session, error) {
	req, err := http.NewRequest("GET", c.BaseURL+"/api/session", nil)
	if err != nil {
		return nil, err
	}
	var out Session
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health() (*Health, error) {
	req, err := http.NewRequest("GET", c.BaseURL+"/api/health", nil)
	if err != nil {
		return nil, err
	}
	var out Health
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trigger starts a remote run and invokes fn for every event as it
// arrives. It returns after the terminal event, or ErrAlreadyRunning if
// the server rejected the trigger as a duplicate.
func (c *Client) Trigger(tr TriggerRequest, fn func(Event)) error {
	body, _ := json.Marshal(tr)
	req, err := http.NewRequest("POST", c.BaseURL+"/api/trigger", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		return ErrAlreadyRunning
	default:
		return httpError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if sc.Text() == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return fmt.Errorf("bad event line: %w", err)
		}
		fn(ev)
	}
	return sc.Err()
}

func (c *Client) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func (c *Client) do(req *http.Request, out interface{}) error {
	c.authorize(req)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func httpError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(msg))
	if text == "" {
		text = resp.Status
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, text)
}
