package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	appevents "github.com/rfonn/walkieLink/internal/app_events"
	callEvent "github.com/rfonn/walkieLink/internal/app_events/call"
	"github.com/rfonn/walkieLink/internal/style"
	corecall "github.com/rfonn/walkieLink/pkg/call"
	"github.com/rfonn/walkieLink/pkg/presence"
	"github.com/rfonn/walkieLink/pkg/waitstage"
)

const maxNameWidth = 20

type callScreen struct {
	spinner spinner.Model
	table   table.Model
	peers   []presence.Peer
	phase   corecall.Phase
	stage   waitstage.Stage
	muted   bool
	speaker bool
	notice  string
}

var rosterColumns = []table.Column{
	{Title: "Index", Width: 6},
	{Title: "Name", Width: maxNameWidth},
	{Title: "Channel", Width: 14},
}

func initCallScreen() callScreen {
	t := table.New(
		table.WithColumns(rosterColumns),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(0),
	)
	t.SetStyles(style.NewTableStyles())

	return callScreen{
		spinner: style.NewSpinner(),
		table:   t,
		phase:   corecall.PhaseIdle,
		stage:   waitstage.StageIdle,
	}
}

func (m *Model) handleAppMessage(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case callEvent.PeersFoundMsg:
		m.screen.setPeers(msg.Peers)
		return m.listenForAppMessages(), true
	case callEvent.PhaseMsg:
		m.screen.phase = msg.Phase
		if msg.Phase == corecall.PhaseIdle {
			m.screen.muted = false
			m.screen.speaker = false
		}
		return m.listenForAppMessages(), true
	case callEvent.WaitStageMsg:
		m.screen.stage = msg.Stage
		return m.listenForAppMessages(), true
	case callEvent.CallFailedMsg:
		m.screen.notice = fmt.Sprintf("Could not reach %s", msg.PeerName)
		return m.listenForAppMessages(), true
	case callEvent.IncomingCallMsg:
		m.screen.notice = fmt.Sprintf("Talking with %s", msg.FromName)
		return m.listenForAppMessages(), true
	case appevents.AppErrorMsg:
		m.err = msg.Err
		return m.listenForAppMessages(), true
	}
	return nil, false
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if peer, ok := m.screen.selectedPeer(); ok && m.screen.phase == corecall.PhaseIdle {
			m.screen.notice = ""
			m.err = nil
			m.app.AppEvents() <- callEvent.DialRequestedMsg{Peer: peer}
		}
		return nil
	case "e":
		m.app.AppEvents() <- callEvent.EndCallMsg{}
		return nil
	case "m":
		if m.screen.phase == corecall.PhaseActive {
			m.screen.muted = !m.screen.muted
			m.app.AppEvents() <- callEvent.ToggleMuteMsg{}
		}
		return nil
	case "s":
		if m.screen.phase == corecall.PhaseActive {
			m.screen.speaker = !m.screen.speaker
			m.app.AppEvents() <- callEvent.ToggleSpeakerMsg{}
		}
		return nil
	}

	var cmd tea.Cmd
	m.screen.table, cmd = m.screen.table.Update(msg)
	return cmd
}

func (s *callScreen) setPeers(peers []presence.Peer) {
	s.peers = peers
	rows := make([]table.Row, 0, len(peers))
	for i, p := range peers {
		rows = append(rows, table.Row{
			strconv.Itoa(i),
			runewidth.Truncate(p.DisplayName, maxNameWidth, "…"),
			p.ChannelKey,
		})
	}
	s.table.SetRows(rows)
	s.table.SetHeight(len(rows) + 1)
}

func (s *callScreen) selectedPeer() (presence.Peer, bool) {
	idx := s.table.Cursor()
	if idx < 0 || idx >= len(s.peers) {
		return presence.Peer{}, false
	}
	return s.peers[idx], true
}

func (s *callScreen) view() string {
	out := style.TitleStyle.Render("walkieLink") + "\n\n"

	if len(s.peers) == 0 {
		out += fmt.Sprintf("%s Looking for friends nearby...\n", s.spinner.View())
	} else {
		out += style.BaseStyle.Render(s.table.View()) + "\n"
	}

	out += "\n" + s.statusLine()
	if s.notice != "" {
		out += "\n" + style.HighlightFontStyle.Render(s.notice)
	}
	return out
}

func (s *callScreen) statusLine() string {
	switch s.phase {
	case corecall.PhaseDialing, corecall.PhaseWaitingForPeer:
		msg := s.stage.Message()
		if msg == "" {
			msg = "Connecting..."
		}
		return fmt.Sprintf("%s %s", s.spinner.View(), msg)
	case corecall.PhaseActive:
		line := style.ActiveStyle.Render("● On call")
		if s.muted {
			line += style.WarnStyle.Render("  muted")
		}
		if s.speaker {
			line += "  speaker"
		}
		return line
	case corecall.PhaseEnded:
		return "Call ended"
	default:
		if s.stage == waitstage.StageFailed {
			return style.ErrorStyle.Render(s.stage.Message())
		}
		return "Select a friend and press Enter to talk"
	}
}

func errorLine(err error) string {
	return style.ErrorStyle.Render(fmt.Sprintf("Error: %v", err))
}

func helpLine() string {
	return style.HelpStyle.Render("enter: talk • e: end • m: mute • s: speaker • q: quit")
}
