package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlnlink/internal/logging"
	"mlnlink/internal/resolve"
)

type fakeBuilder struct {
	dir      string
	built    []string
	buildErr error
}

func (f *fakeBuilder) Build(ctx context.Context, target string) error {
	f.built = append(f.built, target)
	return f.buildErr
}

func (f *fakeBuilder) InstallDir() string { return f.dir }

func (f *fakeBuilder) ReportPath(target, name string) string {
	if name == "" {
		name = target + "-deps.txt"
	}
	return filepath.Join(f.dir, name)
}

func writeReport(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestDriver_ResolveTarget(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "mbgl-core-deps.txt", "-lsqlite3 libmbgl-core.a -framework AppKit some_arg")

	var logs bytes.Buffer
	b := &fakeBuilder{dir: dir}
	d := New(b, logging.New("debug", "text", &logs))

	res, err := d.ResolveTarget(context.Background(), Target{Name: "mbgl-core"})
	require.NoError(t, err)

	assert.Equal(t, []string{"mbgl-core"}, b.built)
	assert.Equal(t, "mbgl-core", res.Target)
	assert.Equal(t, []string{
		"link-dynamic(sqlite3)",
		"add-search-path(" + dir + ")",
		"link-static(mbgl-core)",
		"link-framework(AppKit)",
	}, res.Strings())
	assert.Contains(t, logs.String(), "Dropping unrecognized linker argument.")
	assert.Contains(t, logs.String(), "token=some_arg")
}

func TestDriver_SkipBuildAndBaseOverride(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "custom.txt", "vendor/libfoo.a -m64")

	b := &fakeBuilder{dir: dir}
	d := New(b, logging.Discard())

	res, err := d.ResolveTarget(context.Background(), Target{
		Name:        "mbgl-core",
		Report:      "custom.txt",
		BaseDir:     "/elsewhere",
		PassThrough: true,
		SkipBuild:   true,
	})
	require.NoError(t, err)
	assert.Empty(t, b.built)
	assert.Equal(t, []string{
		"add-search-path(/elsewhere/vendor)",
		"link-static(foo)",
		"pass-through(-m64)",
	}, res.Strings())
}

func TestDriver_Errors(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "bad-deps.txt", "-lz -framework")

	t.Run("build failure", func(t *testing.T) {
		d := New(&fakeBuilder{dir: dir, buildErr: errors.New("boom")}, logging.Discard())
		_, err := d.ResolveTarget(context.Background(), Target{Name: "bad"})
		assert.ErrorContains(t, err, "failed to build bad: boom")
	})

	t.Run("missing report", func(t *testing.T) {
		d := New(&fakeBuilder{dir: dir}, logging.Discard())
		_, err := d.ResolveTarget(context.Background(), Target{Name: "absent", SkipBuild: true})
		assert.ErrorContains(t, err, "could not read dependency report")
	})

	t.Run("malformed report names the token", func(t *testing.T) {
		d := New(&fakeBuilder{dir: dir}, logging.Discard())
		_, err := d.ResolveTarget(context.Background(), Target{Name: "bad", SkipBuild: true})
		require.Error(t, err)
		assert.True(t, errors.Is(err, resolve.ErrMalformedInput))
		assert.Contains(t, err.Error(), `"-framework" at token 1`)
	})
}

func TestDriver_ResolveAllIsolatesPasses(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "a-deps.txt", "libshared.a")
	writeReport(t, dir, "b-deps.txt", "libshared.a")

	d := New(&fakeBuilder{dir: dir}, logging.Discard())
	results, err := d.ResolveAll(context.Background(), []Target{
		{Name: "a", SkipBuild: true},
		{Name: "b", SkipBuild: true},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, res := range results {
		assert.Equal(t, []string{"add-search-path(" + dir + ")", "link-static(shared)"}, res.Strings())
	}
}

func TestDriver_ResolveAllHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(&fakeBuilder{dir: t.TempDir()}, logging.Discard())
	_, err := d.ResolveAll(ctx, []Target{{Name: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
