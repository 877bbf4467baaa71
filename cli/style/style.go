package style

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary = lipgloss.Color("#38BDF8")
	Green   = lipgloss.Color("#10B981")
	Red     = lipgloss.Color("#EF4444")
	Yellow  = lipgloss.Color("#F59E0B")
	Dim     = lipgloss.Color("#6B7280")
	White   = lipgloss.Color("#F9FAFB")

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Bold = lipgloss.NewStyle().Bold(true).Foreground(White)

	Success = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Failure = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Warning = lipgloss.NewStyle().Foreground(Yellow)
	DimText = lipgloss.NewStyle().Foreground(Dim)

	Stdout = lipgloss.NewStyle().Foreground(White)
	Stderr = lipgloss.NewStyle().Foreground(Yellow)
	Status = lipgloss.NewStyle().Foreground(Primary).Italic(true)

	DotRunning = Status.Render("●")
	DotOk      = Success.Render("●")
	DotFailed  = Failure.Render("●")

	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(White).
		Background(Primary).
		Padding(0, 2)

	ErrorBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Foreground(Red).
			Padding(0, 1)
)
