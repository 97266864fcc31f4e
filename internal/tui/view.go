package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mlnlink/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	normalStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	targetStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true) // Sky Blue/Cyan

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	adviceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // Orange

	borderColor = lipgloss.Color("63")
	activeColor = lipgloss.Color("205")
)

func (m AppModel) View() string {
	if m.Loading {
		return "\n  Resolving dependency reports... please wait.\n"
	}
	if m.Err != nil {
		return fmt.Sprintf("\n  Error: %v\n\n  Press q to quit.\n", m.Err)
	}

	width := m.WindowSize.Width
	height := m.WindowSize.Height

	// Subtracting 6 for borders and a small buffer
	netWidth := width - 6
	if netWidth < 20 {
		netWidth = 20
	}
	leftWidth := netWidth / 2
	rightWidth := netWidth - leftWidth

	boxHeight := height - 6
	if boxHeight < 6 {
		boxHeight = 6
	}
	interiorHeight := boxHeight - 2
	if interiorHeight < 2 {
		interiorHeight = 2
	}

	// LEFT PANEL: directive list
	var leftView strings.Builder
	leftView.WriteString(panelTitleStyle.Render("Link Directives"))
	leftView.WriteString("\n\n")

	visibleItems := interiorHeight - 2
	if visibleItems < 1 {
		visibleItems = 1
	}
	startIdx, endIdx := window(len(m.Rows), m.SelectedIdx, visibleItems)

	lastRes := -1
	for i := startIdx; i < endIdx; i++ {
		r := m.Rows[i]
		res := m.Resolutions[r.res]
		d := res.Directives[r.dir]

		if len(m.Resolutions) > 1 && r.res != lastRes {
			leftView.WriteString(targetStyle.Render(res.Target))
			leftView.WriteString("\n")
		}
		lastRes = r.res

		line := fmt.Sprintf("%2d. %s %s", i+1, model.KindIcon(d.Kind), d)
		if len(line) > leftWidth-2 && leftWidth > 5 {
			line = line[:leftWidth-5] + "..."
		}

		style := normalStyle
		if i == m.SelectedIdx {
			style = selectedStyle
		}
		leftView.WriteString(style.Render(line))
		leftView.WriteString("\n")
	}
	if len(m.Rows) == 0 {
		leftView.WriteString(dimStyle.Render("  (no matching directives)"))
	}

	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(activeColor).
		Render(strings.TrimSuffix(leftView.String(), "\n"))

	// RIGHT PANEL: details or diagnostics
	var rightContent string
	if m.ShowDiagnostics {
		rightContent = m.diagnosticsContent()
	} else {
		m.DetailsViewport.Width = rightWidth
		m.DetailsViewport.Height = interiorHeight
		rightContent = m.DetailsViewport.View()
	}
	right := lipgloss.NewStyle().
		Width(rightWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(rightContent)

	header := titleStyle.Render(fmt.Sprintf("mlnlink %s", model.Version)) +
		dimStyle.Render(fmt.Sprintf("  pass-through: %t", m.PassThrough))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.footer(),
	)
}

// window returns the visible slice [start, end) keeping selected centred.
func window(total, selected, visible int) (int, int) {
	if total <= visible {
		return 0, total
	}
	start := selected - visible/2
	if start < 0 {
		start = 0
	}
	if start+visible > total {
		start = total - visible
	}
	return start, start + visible
}

func (m AppModel) footer() string {
	if m.InputMode {
		return "Filter: " + m.InputBuffer.View()
	}
	help := "↑/↓ move • / filter • p toggle pass-through • d diagnostics • q quit"
	if m.SearchActive {
		help = fmt.Sprintf("filter %q (%d matches) • esc clear • ", m.InputBuffer.Value(), len(m.Rows)) + help
	}
	return dimStyle.Render(help)
}

func (m AppModel) detailsContent() string {
	res, d, ok := m.selected()
	if !ok {
		return dimStyle.Render("Nothing selected.")
	}

	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Details"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Target:     %s\n", res.Target)
	fmt.Fprintf(&b, "Kind:       %s %s\n", model.KindIcon(d.Kind), d.Kind)
	switch d.Kind {
	case model.KindSearchPath:
		fmt.Fprintf(&b, "Directory:  %s\n", d.Dir)
	case model.KindLinkStatic:
		fmt.Fprintf(&b, "Library:    %s\n", d.Name)
		fmt.Fprintf(&b, "Directory:  %s\n", d.Dir)
	case model.KindPassThrough:
		fmt.Fprintf(&b, "Argument:   %s\n", d.Raw)
	default:
		fmt.Fprintf(&b, "Name:       %s\n", d.Name)
	}
	fmt.Fprintf(&b, "Token:      %s (position %d)\n", d.Token, d.Pos)
	fmt.Fprintf(&b, "Base dir:   %s\n", res.BaseDir)

	if res.Report != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Context: " + model.GetTokenContext(res.Report, d.Pos).String()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m AppModel) diagnosticsContent() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Dropped Tokens"))
	b.WriteString("\n\n")

	total := 0
	for _, res := range m.Resolutions {
		for _, diag := range res.Diagnostics {
			total++
			b.WriteString(adviceStyle.Render(fmt.Sprintf("%s %s: %s", model.IconDropped, res.Target, diag)))
			b.WriteString("\n")
		}
	}
	if total == 0 {
		b.WriteString(dimStyle.Render("No tokens were dropped."))
		b.WriteString("\n")
		if !m.PassThrough {
			return b.String()
		}
		b.WriteString(dimStyle.Render("Pass-through is on: unrecognized tokens are forwarded."))
	}
	return b.String()
}
