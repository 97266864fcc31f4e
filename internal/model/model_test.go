package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirective_String(t *testing.T) {
	assert.Equal(t, "link-dynamic(sqlite3)", LinkDynamic("sqlite3").String())
	assert.Equal(t, "link-framework(AppKit)", LinkFramework("AppKit").String())
	assert.Equal(t, "link-static(mbgl-core)", LinkStatic("mbgl-core", "/build").String())
	assert.Equal(t, "add-search-path(/build)", SearchPath("/build").String())
	assert.Equal(t, "pass-through(-fPIC)", PassThrough("-fPIC").String())
}

func TestDirective_JSONKindByName(t *testing.T) {
	data, err := json.Marshal(LinkStatic("glslang", "/build/vendor").At("vendor/libglslang.a", 7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"link-static","name":"glslang","dir":"/build/vendor","token":"vendor/libglslang.a","pos":7}`, string(data))

	var back Directive
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, KindLinkStatic, back.Kind)

	var kind DirectiveKind
	assert.Error(t, kind.UnmarshalText([]byte("link-everything")))
}

func TestGetTokenContext(t *testing.T) {
	report := "-lz -lm libfoo.a -framework Metal"

	ctx := GetTokenContext(report, 2)
	assert.Equal(t, "libfoo.a", ctx.Target)
	assert.Equal(t, "-lz", ctx.Before2)
	assert.Equal(t, "-lm", ctx.Before1)
	assert.Equal(t, "-framework", ctx.After1)
	assert.Equal(t, "Metal", ctx.After2)
	assert.Equal(t, "-lz -lm [libfoo.a] -framework Metal", ctx.String())

	first := GetTokenContext(report, 0)
	assert.False(t, first.HasBefore)
	assert.Equal(t, "[-lz] -lm libfoo.a", first.String())

	last := GetTokenContext(report, 4)
	assert.False(t, last.HasAfter)
	assert.Equal(t, "libfoo.a -framework [Metal]", last.String())

	missing := GetTokenContext(report, 9)
	assert.Contains(t, missing.ErrorMsg, "out of range")
}

func TestReadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbgl-core-deps.txt")
	require.NoError(t, os.WriteFile(path, []byte("-lz libmbgl-core.a\n"), 0600))

	report, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "-lz libmbgl-core.a\n", report)

	_, err = ReadReport(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "could not read dependency report")
}

func TestResolution_Count(t *testing.T) {
	res := Resolution{Directives: []Directive{
		LinkDynamic("z"), SearchPath("/b"), LinkStatic("a", "/b"), LinkStatic("c", "/b"),
	}}
	assert.Equal(t, 2, res.Count(KindLinkStatic))
	assert.Equal(t, 0, res.Count(KindPassThrough))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Link-Static ")
	require.NoError(t, err)
	assert.Equal(t, KindLinkStatic, k)

	k, err = ParseKind("add-search-path")
	require.NoError(t, err)
	assert.Equal(t, KindSearchPath, k)

	_, err = ParseKind("link-everything")
	assert.ErrorContains(t, err, `unknown directive kind "link-everything"`)
}

func TestResolution_Only(t *testing.T) {
	res := Resolution{
		Target: "mbgl-core",
		Directives: []Directive{
			LinkDynamic("z"), SearchPath("/b"), LinkStatic("a", "/b"), PassThrough("-fPIC"),
		},
		Diagnostics: []Diagnostic{{Token: "-x", Pos: 4, Message: "dropped"}},
	}

	only := res.Only(KindLinkStatic, KindSearchPath)
	assert.Equal(t, []string{"add-search-path(/b)", "link-static(a)"}, only.Strings())
	assert.Equal(t, "mbgl-core", only.Target)
	assert.Len(t, only.Diagnostics, 1)

	// The original is untouched.
	assert.Len(t, res.Directives, 4)
	assert.Empty(t, res.Only().Directives)
}
