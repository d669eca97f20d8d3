package ui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rfonn/walkieLink/internal/app_events"
)

// AppController is the logic controller the TUI drives.
type AppController interface {
	Run(ctx context.Context) error
	UIMessages() <-chan tea.Msg
	AppEvents() chan<- appevents.AppEvent
}

// Model is the root bubbletea model: a peer roster plus a call status line.
type Model struct {
	app    AppController
	ctx    context.Context
	cancel context.CancelFunc
	screen callScreen
	err    error
}

func InitialModel(app AppController) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		app:    app,
		ctx:    ctx,
		cancel: cancel,
		screen: initCallScreen(),
	}
}

func (m Model) Init() tea.Cmd {
	go func() {
		if err := m.app.Run(m.ctx); err != nil && m.ctx.Err() == nil {
			slog.Error("app controller stopped", "error", err)
		}
	}()
	return tea.Batch(m.screen.spinner.Tick, m.listenForAppMessages())
}

// listenForAppMessages pulls the next controller message into the tea loop.
func (m Model) listenForAppMessages() tea.Cmd {
	return func() tea.Msg {
		return <-m.app.UIMessages()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, handled := m.handleAppMessage(msg); handled {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, m.handleKey(msg)
	}

	var spinCmd tea.Cmd
	m.screen.spinner, spinCmd = m.screen.spinner.Update(msg)
	var tableCmd tea.Cmd
	m.screen.table, tableCmd = m.screen.table.Update(msg)
	return m, tea.Batch(spinCmd, tableCmd)
}

func (m Model) View() string {
	s := m.screen.view()
	if m.err != nil {
		s += "\n" + errorLine(m.err)
	}
	s += "\n" + helpLine()
	return s
}
