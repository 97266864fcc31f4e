// Package render encodes resolved directives in the syntax of a host build
// tool, or as a report for humans.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mlnlink/internal/model"
)

// Format selects the output encoding.
type Format string

const (
	FormatReport Format = "report"
	FormatJSON   Format = "json"
	FormatCgo    Format = "cgo"
	FormatFlags  Format = "flags"
	FormatCargo  Format = "cargo"
)

// Formats lists every supported format.
var Formats = []Format{FormatReport, FormatJSON, FormatCgo, FormatFlags, FormatCargo}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want one of report, json, cgo, flags, cargo)", s)
}

// Options tunes the renderers that need more than the directives.
type Options struct {
	Package string // Go package of the generated cgo file
	Verbose bool   // Report token positions
}

// Write renders resolutions in format f to w.
func Write(w io.Writer, f Format, opts Options, resolutions []model.Resolution) error {
	var out string
	switch f {
	case FormatJSON:
		return JSON(w, resolutions)
	case FormatCgo:
		out = Cgo(opts.Package, resolutions)
	case FormatFlags:
		out = Flags(resolutions) + "\n"
	case FormatCargo:
		out = Cargo(resolutions)
	case FormatReport, "":
		out = Report(resolutions, opts.Verbose)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
	_, err := io.WriteString(w, out)
	return err
}

// JSON writes the resolutions as indented JSON.
func JSON(w io.Writer, resolutions []model.Resolution) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resolutions)
}

// LinkerArgs converts one directive into linker command-line arguments.
func LinkerArgs(d model.Directive) []string {
	switch d.Kind {
	case model.KindLinkDynamic, model.KindLinkStatic:
		return []string{"-l" + d.Name}
	case model.KindLinkFramework:
		return []string{"-framework", d.Name}
	case model.KindSearchPath:
		return []string{"-L" + d.Dir}
	case model.KindPassThrough:
		return []string{d.Raw}
	}
	return nil
}

// Flags renders every directive as a single linker-flag line suitable for
// CGO_LDFLAGS. Arguments containing whitespace or quotes are quoted.
func Flags(resolutions []model.Resolution) string {
	var args []string
	for _, res := range resolutions {
		for _, d := range res.Directives {
			for _, arg := range LinkerArgs(d) {
				args = append(args, quoteEnvArg(arg))
			}
		}
	}
	return strings.Join(args, " ")
}

// Cgo renders a Go source file whose preamble carries one #cgo LDFLAGS line
// per directive. Frameworks only exist on Darwin, so their lines are
// constrained to it.
func Cgo(pkg string, resolutions []model.Resolution) string {
	if pkg == "" {
		pkg = "maplibre"
	}

	var b strings.Builder
	b.WriteString("// Code generated by mlnlink. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	b.WriteString("/*\n")
	for _, res := range resolutions {
		if res.Target != "" {
			fmt.Fprintf(&b, "// %s\n", res.Target)
		}
		for _, d := range res.Directives {
			constraint := ""
			if d.Kind == model.KindLinkFramework {
				constraint = " darwin"
			}
			args := LinkerArgs(d)
			for i, arg := range args {
				args[i] = quoteCgoArg(arg)
			}
			fmt.Fprintf(&b, "#cgo%s LDFLAGS: %s\n", constraint, strings.Join(args, " "))
		}
	}
	b.WriteString("*/\n")
	b.WriteString("import \"C\"\n")
	return b.String()
}

// quoteEnvArg quotes arg for the CGO_LDFLAGS splitter, which honours single
// and double quotes but no backslash escapes.
func quoteEnvArg(arg string) string {
	if !strings.ContainsAny(arg, " \t\n\r\"'") {
		return arg
	}
	if !strings.Contains(arg, "'") {
		return "'" + arg + "'"
	}
	return `"` + arg + `"`
}

// quoteCgoArg quotes arg for a #cgo directive. Its splitter treats a
// backslash as an escape everywhere, so backslashes and quotes are escaped
// and whitespace is wrapped in single quotes.
func quoteCgoArg(arg string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `"`, `\"`).Replace(arg)
	if strings.ContainsAny(arg, " \t\n\r") {
		return "'" + escaped + "'"
	}
	return escaped
}

// Cargo renders cargo build-script instructions, one per line.
func Cargo(resolutions []model.Resolution) string {
	var b strings.Builder
	for _, res := range resolutions {
		for _, d := range res.Directives {
			switch d.Kind {
			case model.KindLinkDynamic:
				fmt.Fprintf(&b, "cargo:rustc-link-lib=%s\n", d.Name)
			case model.KindLinkFramework:
				fmt.Fprintf(&b, "cargo:rustc-link-lib=framework=%s\n", d.Name)
			case model.KindLinkStatic:
				fmt.Fprintf(&b, "cargo:rustc-link-lib=static=%s\n", d.Name)
			case model.KindSearchPath:
				fmt.Fprintf(&b, "cargo:rustc-link-search=native=%s\n", d.Dir)
			case model.KindPassThrough:
				fmt.Fprintf(&b, "cargo:rustc-link-arg=%s\n", d.Raw)
			}
		}
	}
	return b.String()
}
