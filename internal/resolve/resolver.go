// Package resolve turns the dependency report written by the native build
// into an ordered list of linker directives.
package resolve

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"mlnlink/internal/model"
)

const (
	frameworkFlag = "-framework"
	dynamicPrefix = "-l"
	archiveSuffix = ".a"
	libPrefix     = "lib"
)

// Context holds the inputs of one resolution pass. It is read-only during
// the pass and may be reused for further passes.
type Context struct {
	// BaseDir anchors the relative parent directories of static archives.
	BaseDir string
	// PassThrough forwards unrecognized tokens as raw linker arguments
	// instead of dropping them.
	PassThrough bool
}

// Resolve classifies the whitespace separated tokens of report in a single
// left-to-right pass and returns the directives in emission order.
//
// A search path is emitted once per pass, immediately before the first
// static archive that lives in it. On error no directives are returned.
func Resolve(report string, ctx Context) (model.Resolution, error) {
	res := model.Resolution{
		BaseDir:     ctx.BaseDir,
		PassThrough: ctx.PassThrough,
		Directives:  []model.Directive{},
		Report:      report,
	}

	tokens := strings.Fields(report)
	seenDirs := make(map[string]struct{})

	for pos := 0; pos < len(tokens); pos++ {
		tok := tokens[pos]

		switch {
		case tok == frameworkFlag:
			if pos+1 >= len(tokens) {
				return model.Resolution{}, &TokenError{Kind: ErrMalformedInput, Token: tok, Pos: pos}
			}
			pos++
			res.Directives = append(res.Directives, model.LinkFramework(tokens[pos]).At(tok, pos-1))

		case strings.HasPrefix(tok, dynamicPrefix):
			res.Directives = append(res.Directives, model.LinkDynamic(tok[len(dynamicPrefix):]).At(tok, pos))

		case strings.HasSuffix(filepath.Base(tok), archiveSuffix):
			if !utf8.ValidString(tok) {
				return model.Resolution{}, &TokenError{Kind: ErrEncoding, Token: tok, Pos: pos}
			}
			name, dir := staticArchive(tok, ctx.BaseDir)
			if _, ok := seenDirs[dir]; !ok {
				seenDirs[dir] = struct{}{}
				res.Directives = append(res.Directives, model.SearchPath(dir).At(tok, pos))
			}
			res.Directives = append(res.Directives, model.LinkStatic(name, dir).At(tok, pos))

		case ctx.PassThrough:
			res.Directives = append(res.Directives, model.PassThrough(tok).At(tok, pos))

		default:
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Token:   tok,
				Pos:     pos,
				Message: "unrecognized linker argument dropped",
			})
		}
	}

	return res, nil
}

// staticArchive derives the library name and search directory of an
// archive token such as vendor/glslang/libglslang.a.
func staticArchive(tok, baseDir string) (name, dir string) {
	stem := strings.TrimSuffix(filepath.Base(tok), archiveSuffix)
	name = strings.TrimPrefix(stem, libPrefix)

	parent := filepath.Dir(tok)
	switch {
	case parent == ".":
		dir = baseDir
		if dir != "" {
			dir = filepath.Clean(dir)
		}
	case filepath.IsAbs(parent):
		dir = parent
	default:
		dir = filepath.Join(baseDir, parent)
	}
	return name, dir
}
