package tui

import (
	"strings"

	"mlnlink/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// MsgResolved carries a finished resolution of every target.
type MsgResolved []model.Resolution

// MsgError indicates an error occurred.
type MsgError struct{ Err error }

// ResolveCmd runs source in the background.
func ResolveCmd(source Source, passThrough *bool) tea.Cmd {
	return func() tea.Msg {
		res, err := source(passThrough)
		if err != nil {
			return MsgError{Err: err}
		}
		return MsgResolved(res)
	}
}

// Update handles events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		m.DetailsViewport.Width = msg.Width / 2
		m.DetailsViewport.Height = msg.Height - 6 // minus footer/header/borders
		m.refreshDetails()
		return m, nil

	case MsgResolved:
		m.Loading = false
		m.Err = nil
		m.Resolutions = []model.Resolution(msg)
		if len(m.Resolutions) > 0 {
			m.PassThrough = m.Resolutions[0].PassThrough
		}
		m.applyFilter()
		return m, nil

	case MsgError:
		m.Err = msg.Err
		m.Loading = false
		return m, nil

	case tea.KeyMsg:
		if m.InputMode {
			switch msg.Type {
			case tea.KeyEnter:
				m.InputMode = false
				m.InputBuffer.Blur()
				m.applyFilter()
				return m, nil
			case tea.KeyEsc:
				m.InputMode = false
				m.InputBuffer.Blur()
				m.InputBuffer.SetValue("")
				m.applyFilter()
				return m, nil
			}
			m.InputBuffer, cmd = m.InputBuffer.Update(msg)
			m.applyFilter()
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.SearchActive {
				m.InputBuffer.SetValue("")
				m.applyFilter()
			}
			m.ShowDiagnostics = false
		case "up", "k":
			if m.SelectedIdx > 0 {
				m.SelectedIdx--
			}
			m.refreshDetails()
		case "down", "j":
			if m.SelectedIdx < len(m.Rows)-1 {
				m.SelectedIdx++
			}
			m.refreshDetails()
		case "pgup", "pgdown":
			m.DetailsViewport, cmd = m.DetailsViewport.Update(msg)
		case "d":
			m.ShowDiagnostics = !m.ShowDiagnostics
		case "p":
			if m.Loading {
				return m, nil
			}
			policy := !m.PassThrough
			m.Loading = true
			return m, ResolveCmd(m.Source, &policy)
		case "/":
			m.InputMode = true
			m.InputBuffer.Focus()
			return m, textinput.Blink
		}
	}

	return m, cmd
}

// applyFilter rebuilds Rows from the filter text and clamps the cursor.
func (m *AppModel) applyFilter() {
	term := strings.ToLower(strings.TrimSpace(m.InputBuffer.Value()))
	m.SearchActive = term != ""

	var rows []row
	for ri, res := range m.Resolutions {
		for di, d := range res.Directives {
			if m.SearchActive && !matches(d, term) {
				continue
			}
			rows = append(rows, row{res: ri, dir: di})
		}
	}
	m.Rows = rows

	if m.SelectedIdx >= len(m.Rows) {
		if len(m.Rows) > 0 {
			m.SelectedIdx = len(m.Rows) - 1
		} else {
			m.SelectedIdx = 0
		}
	}
	m.refreshDetails()
}

func matches(d model.Directive, term string) bool {
	for _, field := range []string{d.Name, d.Dir, d.Raw, d.Token, d.Kind.String()} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (m *AppModel) refreshDetails() {
	m.DetailsViewport.SetContent(m.detailsContent())
}
