package model

import (
	"fmt"
	"strings"
)

// Version is reported by --version and compared against the latest release.
const Version = "0.3.0"

// DirectiveKind tags the variant held by a Directive.
type DirectiveKind int

const (
	KindLinkDynamic DirectiveKind = iota
	KindLinkFramework
	KindLinkStatic
	KindSearchPath
	KindPassThrough
)

var kindNames = map[DirectiveKind]string{
	KindLinkDynamic:   "link-dynamic",
	KindLinkFramework: "link-framework",
	KindLinkStatic:    "link-static",
	KindSearchPath:    "add-search-path",
	KindPassThrough:   "pass-through",
}

func (k DirectiveKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name so JSON output stays readable.
func (k DirectiveKind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown directive kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *DirectiveKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown directive kind %q", string(text))
}

// ParseKind parses a kind name such as "link-static".
func ParseKind(s string) (DirectiveKind, error) {
	var k DirectiveKind
	err := k.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s))))
	return k, err
}

// Directive is one linker instruction for the host build tool.
type Directive struct {
	Kind DirectiveKind `json:"kind"`
	Name string        `json:"name,omitempty"` // Library or framework name
	Dir  string        `json:"dir,omitempty"`  // Search directory (search paths and static archives)
	Raw  string        `json:"raw,omitempty"`  // Unrecognized flag forwarded verbatim

	// Source attribution
	Token string `json:"token"` // Report token that produced the directive
	Pos   int    `json:"pos"`   // Zero-based token position in the report
}

// LinkDynamic returns a directive linking the named shared library.
func LinkDynamic(name string) Directive {
	return Directive{Kind: KindLinkDynamic, Name: name}
}

// LinkFramework returns a directive linking the named framework.
func LinkFramework(name string) Directive {
	return Directive{Kind: KindLinkFramework, Name: name}
}

// LinkStatic returns a directive linking a static archive found in dir.
func LinkStatic(name, dir string) Directive {
	return Directive{Kind: KindLinkStatic, Name: name, Dir: dir}
}

// SearchPath returns a directive adding dir to the library search path.
func SearchPath(dir string) Directive {
	return Directive{Kind: KindSearchPath, Dir: dir}
}

// PassThrough returns a directive forwarding raw to the linker untouched.
func PassThrough(raw string) Directive {
	return Directive{Kind: KindPassThrough, Raw: raw}
}

// At records the report token a directive was derived from.
func (d Directive) At(token string, pos int) Directive {
	d.Token = token
	d.Pos = pos
	return d
}

// String renders the directive as kind(argument), e.g. link-static(mbgl-core).
func (d Directive) String() string {
	switch d.Kind {
	case KindSearchPath:
		return fmt.Sprintf("%s(%s)", d.Kind, d.Dir)
	case KindPassThrough:
		return fmt.Sprintf("%s(%s)", d.Kind, d.Raw)
	default:
		return fmt.Sprintf("%s(%s)", d.Kind, d.Name)
	}
}

// Diagnostic is a non-fatal note about a report token.
type Diagnostic struct {
	Token   string `json:"token"`
	Pos     int    `json:"pos"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("token %d %q: %s", d.Pos, d.Token, d.Message)
}

// Resolution is the outcome of one resolution pass over a dependency report.
type Resolution struct {
	Target      string       `json:"target,omitempty"`
	BaseDir     string       `json:"base_dir"`
	PassThrough bool         `json:"pass_through"`
	Directives  []Directive  `json:"directives"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	Report string `json:"-"` // Report text the pass consumed
}

// Count returns how many directives of kind k the resolution holds.
func (r Resolution) Count(k DirectiveKind) int {
	n := 0
	for _, d := range r.Directives {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Strings returns the String form of every directive, in order.
func (r Resolution) Strings() []string {
	out := make([]string, len(r.Directives))
	for i, d := range r.Directives {
		out[i] = d.String()
	}
	return out
}

// Only returns a copy of r holding just the directives of the given kinds.
// Diagnostics are kept.
func (r Resolution) Only(kinds ...DirectiveKind) Resolution {
	keep := make(map[DirectiveKind]bool, len(kinds))
	for _, k := range kinds {
		keep[k] = true
	}
	out := r
	out.Directives = make([]Directive, 0, len(r.Directives))
	for _, d := range r.Directives {
		if keep[d.Kind] {
			out.Directives = append(out.Directives, d)
		}
	}
	return out
}
