package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"bifrost/cli/style"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch run lifecycle events from all callers, live",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	_, err := tea.NewProgram(newWatchModel(client.BaseURL)).Run()
	return err
}

// --- Messages ---

type runEvent struct {
	Type    string            `json:"type"`
	RunID   string            `json:"runId"`
	Payload map[string]string `json:"payload"`
}

type wsConnected struct{ ch chan tea.Msg }
type wsClosed struct{ err error }

// --- Model ---

type watchEntry struct {
	runID   string
	name    string
	host    string
	outcome string // "" while running
	started time.Time
}

type watchModel struct {
	baseURL string
	spinner spinner.Model
	runs    []watchEntry
	status  string // connecting | watching | closed
	errMsg  string
	eventCh chan tea.Msg
}

func newWatchModel(baseURL string) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Primary)
	return watchModel{baseURL: baseURL, spinner: s, status: "connecting"}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, connectHub(m.baseURL))
}

func connectHub(baseURL string) tea.Cmd {
	return func() tea.Msg {
		wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			return wsClosed{err: err}
		}

		ch := make(chan tea.Msg, 16)
		go func() {
			defer conn.Close()
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					ch <- wsClosed{err: err}
					return
				}
				var ev runEvent
				if json.Unmarshal(data, &ev) == nil {
					ch <- ev
				}
			}
		}()
		return wsConnected{ch: ch}
	}
}

func waitForEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case wsConnected:
		m.status = "watching"
		m.eventCh = msg.ch
		return m, waitForEvent(m.eventCh)

	case wsClosed:
		m.status = "closed"
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		}
		return m, nil

	case runEvent:
		m.apply(msg)
		return m, waitForEvent(m.eventCh)
	}
	return m, nil
}

func (m *watchModel) apply(ev runEvent) {
	switch ev.Type {
	case "run.accepted":
		m.runs = append(m.runs, watchEntry{
			runID:   ev.RunID,
			name:    ev.Payload["runName"],
			host:    ev.Payload["host"],
			started: time.Now(),
		})
	case "run.finished":
		for i := range m.runs {
			if m.runs[i].runID == ev.RunID && m.runs[i].outcome == "" {
				m.runs[i].outcome = ev.Payload["outcome"]
				return
			}
		}
	case "run.rejected":
		m.runs = append(m.runs, watchEntry{
			name:    ev.Payload["runName"],
			host:    ev.Payload["host"],
			outcome: "duplicate",
			started: time.Now(),
		})
	}
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(style.Title.Render("bifrost watch") + "\n")

	switch m.status {
	case "connecting":
		b.WriteString(m.spinner.View() + " connecting...\n")
	case "closed":
		b.WriteString(style.Failure.Render("feed closed") + " " + style.DimText.Render(m.errMsg) + "\n")
	}

	if len(m.runs) == 0 && m.status == "watching" {
		b.WriteString(style.DimText.Render("no runs yet") + "\n")
	}
	for _, r := range m.runs {
		var dot, note string
		switch r.outcome {
		case "":
			dot = m.spinner.View()
			note = style.Status.Render("running")
		case "success":
			dot = style.DotOk
			note = style.Success.Render("success")
		case "duplicate":
			dot = style.DotFailed
			note = style.Warning.Render("rejected (duplicate)")
		default:
			dot = style.DotFailed
			note = style.Failure.Render(r.outcome)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n", dot, style.Bold.Render(r.name),
			style.DimText.Render("on "+r.host), note)
	}

	b.WriteString(style.DimText.Render("\nq to quit\n"))
	return b.String()
}
