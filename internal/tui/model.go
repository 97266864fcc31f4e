package tui

import (
	"mlnlink/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Source resolves the configured targets. A non-nil passThrough overrides
// the configured pass-through policy of every target.
type Source func(passThrough *bool) ([]model.Resolution, error)

// row points at one directive of one resolution.
type row struct {
	res int
	dir int
}

// AppModel holds the TUI state.
type AppModel struct {
	// Data
	Source      Source
	Resolutions []model.Resolution
	Loading     bool
	Err         error

	// Policy shown and toggled with 'p'
	PassThrough bool

	// UI State
	SelectedIdx     int
	WindowSize      tea.WindowSizeMsg
	ShowDiagnostics bool

	// Filter State
	InputMode    bool
	InputBuffer  textinput.Model
	Rows         []row // Directives matching the filter
	SearchActive bool

	// Components
	DetailsViewport viewport.Model
}

// InitialModel returns the initial state.
func InitialModel(source Source) AppModel {
	ti := textinput.New()
	ti.Placeholder = "name, dir or token..."
	ti.CharLimit = 80
	ti.Width = 30

	return AppModel{
		Source:          source,
		Loading:         true,
		InputBuffer:     ti,
		DetailsViewport: viewport.New(40, 10),
	}
}

// Init starts the first resolution in the background.
func (m AppModel) Init() tea.Cmd {
	return ResolveCmd(m.Source, nil)
}

// selected returns the directive under the cursor.
func (m AppModel) selected() (model.Resolution, model.Directive, bool) {
	if m.SelectedIdx < 0 || m.SelectedIdx >= len(m.Rows) {
		return model.Resolution{}, model.Directive{}, false
	}
	r := m.Rows[m.SelectedIdx]
	res := m.Resolutions[r.res]
	return res, res.Directives[r.dir], true
}
