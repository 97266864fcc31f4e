package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mlnlink/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyles = map[model.DirectiveKind]lipgloss.Style{
		model.KindLinkDynamic:   lipgloss.NewStyle().Foreground(lipgloss.Color("81")),  // Sky Blue
		model.KindLinkStatic:    lipgloss.NewStyle().Foreground(lipgloss.Color("205")), // Pinkish
		model.KindLinkFramework: lipgloss.NewStyle().Foreground(lipgloss.Color("229")),
		model.KindSearchPath:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")), // Grey
		model.KindPassThrough:   lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	}

	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")) // Orange
)

// reportKinds fixes the order of the summary line.
var reportKinds = []model.DirectiveKind{
	model.KindLinkDynamic,
	model.KindLinkStatic,
	model.KindLinkFramework,
	model.KindSearchPath,
	model.KindPassThrough,
}

// Report renders a human readable summary of each resolution.
func Report(resolutions []model.Resolution, verbose bool) string {
	var b strings.Builder

	for i, res := range resolutions {
		if i > 0 {
			b.WriteString("\n")
		}
		title := res.Target
		if title == "" {
			title = "dependency report"
		}
		b.WriteString(headerStyle.Render(title))
		b.WriteString("\n")
		fmt.Fprintf(&b, "base dir: %s   pass-through: %t\n\n", res.BaseDir, res.PassThrough)

		if len(res.Directives) == 0 {
			b.WriteString("  (no directives)\n")
		}
		for _, d := range res.Directives {
			style := kindStyles[d.Kind]
			line := fmt.Sprintf("  %s %-16s %s", model.KindIcon(d.Kind), d.Kind, directiveArg(d))
			if verbose {
				line += fmt.Sprintf("   [token %d: %s]", d.Pos, d.Token)
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}

		var counts []string
		for _, k := range reportKinds {
			if n := res.Count(k); n > 0 {
				counts = append(counts, fmt.Sprintf("%d %s", n, k))
			}
		}
		if len(counts) > 0 {
			fmt.Fprintf(&b, "\n  %s\n", strings.Join(counts, ", "))
		}

		if len(res.Diagnostics) > 0 {
			b.WriteString("\n")
			for _, diag := range res.Diagnostics {
				b.WriteString(warnStyle.Render(fmt.Sprintf("  %s %s", model.IconDropped, diag)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func directiveArg(d model.Directive) string {
	switch d.Kind {
	case model.KindSearchPath:
		return d.Dir
	case model.KindPassThrough:
		return d.Raw
	case model.KindLinkStatic:
		return d.Name + "  (" + d.Dir + ")"
	default:
		return d.Name
	}
}
