package style

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPink      = lipgloss.Color("205")
	colorDarkGray  = lipgloss.Color("240")
	colorLightGray = lipgloss.Color("229")
	colorBlue      = lipgloss.Color("57")
	colorCyan      = lipgloss.Color("212")
	colorGreen     = lipgloss.Color("42")
	colorYellow    = lipgloss.Color("220")
	colorRed       = lipgloss.Color("196")
)

var (
	ErrorStyle         = lipgloss.NewStyle().Foreground(colorRed)
	WarnStyle          = lipgloss.NewStyle().Foreground(colorYellow)
	ActiveStyle        = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	BaseStyle          = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorDarkGray)
	HighlightFontStyle = lipgloss.NewStyle().Foreground(colorCyan)
	TitleStyle         = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	HelpStyle          = lipgloss.NewStyle().Faint(true)
)

// NewSpinner creates a spinner with a consistent style.
func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPink)
	return s
}

// NewTableStyles returns the default styles for tables, with our custom
// selection style.
func NewTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.Foreground(colorLightGray).Background(colorBlue).Bold(false)
	return styles
}
