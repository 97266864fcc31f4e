// Package config loads mlnlink.hcl: where the native engine is built, which
// targets to resolve, how to render the result and which tile server to use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	"github.com/zclconf/go-cty/cty"

	"mlnlink/internal/driver"
	"mlnlink/internal/nativebuild"
	"mlnlink/internal/render"
	"mlnlink/internal/tileserver"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "mlnlink.hcl"

// Config is the decoded and validated configuration.
type Config struct {
	Path       string
	Build      Build
	Targets    []Target
	Output     Output
	TileServer *TileServer
	Map        tileserver.MapOptions
}

type Build struct {
	SourceDir string
	BuildDir  string
	Generator string
	CMakeArgs []string
}

type Target struct {
	Name        string
	Report      string
	BaseDir     string
	PassThrough bool
	SkipBuild   bool
}

type Output struct {
	Format  render.Format
	Package string
	Path    string
}

type TileServer struct {
	Preset  string
	BaseURL string
	APIKey  string
}

// fileRoot mirrors the blocks allowed at the top level of the file.
type fileRoot struct {
	Build      *buildBlock      `hcl:"build,block"`
	Targets    []*targetBlock   `hcl:"target,block"`
	Output     *outputBlock     `hcl:"output,block"`
	TileServer *tileServerBlock `hcl:"tile_server,block"`
	Map        *mapBlock        `hcl:"map,block"`
}

type buildBlock struct {
	SourceDir string   `hcl:"source_dir,optional"`
	BuildDir  string   `hcl:"build_dir,optional"`
	Generator string   `hcl:"generator,optional"`
	CMakeArgs []string `hcl:"cmake_args,optional"`
}

type targetBlock struct {
	Name        string `hcl:"name,label"`
	Report      string `hcl:"report,optional"`
	BaseDir     string `hcl:"base_dir,optional"`
	PassThrough bool   `hcl:"pass_through,optional"`
	SkipBuild   bool   `hcl:"skip_build,optional"`
}

type outputBlock struct {
	Format  string `hcl:"format,optional"`
	Package string `hcl:"package,optional"`
	Path    string `hcl:"path,optional"`
}

type tileServerBlock struct {
	Preset  string `hcl:"preset,optional"`
	BaseURL string `hcl:"base_url,optional"`
	APIKey  string `hcl:"api_key,optional"`
}

type mapBlock struct {
	Width    *int     `hcl:"width,optional"`
	Height   *int     `hcl:"height,optional"`
	Ratio    *float64 `hcl:"ratio,optional"`
	Zoom     *float64 `hcl:"zoom,optional"`
	Bearing  *float64 `hcl:"bearing,optional"`
	Pitch    *float64 `hcl:"pitch,optional"`
	Provider string   `hcl:"provider,optional"`
	Token    string   `hcl:"token,optional"`
}

// Load reads path. A .env file next to it is loaded into the environment
// first, without overriding variables that are already set.
func Load(path string) (*Config, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(src, path)
}

// Parse decodes HCL source. Relative directories are resolved against the
// directory of filename.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	cfg, err := translate(&root, filepath.Dir(filename))
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	cfg.Path = filename
	return cfg, nil
}

// evalContext exposes the process environment as env.NAME.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}

	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

func translate(root *fileRoot, dir string) (*Config, error) {
	cfg := &Config{
		Build: Build{SourceDir: ".", BuildDir: "build"},
		Output: Output{
			Format:  render.FormatReport,
			Package: "maplibre",
		},
	}

	if b := root.Build; b != nil {
		cfg.Build.SourceDir = firstNonEmpty(b.SourceDir, cfg.Build.SourceDir)
		cfg.Build.BuildDir = firstNonEmpty(b.BuildDir, cfg.Build.BuildDir)
		if b.Generator != "" {
			if _, err := nativebuild.GeneratorByName(b.Generator); err != nil {
				return nil, err
			}
		}
		cfg.Build.Generator = b.Generator
		cfg.Build.CMakeArgs = b.CMakeArgs
	}
	cfg.Build.SourceDir = resolvePath(dir, cfg.Build.SourceDir)
	cfg.Build.BuildDir = resolvePath(dir, cfg.Build.BuildDir)

	if len(root.Targets) == 0 {
		return nil, errors.New("at least one target block is required")
	}
	seen := make(map[string]bool)
	for _, t := range root.Targets {
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate target %q", t.Name)
		}
		seen[t.Name] = true

		target := Target{
			Name:        t.Name,
			Report:      t.Report,
			PassThrough: t.PassThrough,
			SkipBuild:   t.SkipBuild,
		}
		if t.BaseDir != "" {
			target.BaseDir = resolvePath(dir, t.BaseDir)
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	if o := root.Output; o != nil {
		if o.Format != "" {
			f, err := render.ParseFormat(o.Format)
			if err != nil {
				return nil, err
			}
			cfg.Output.Format = f
		}
		cfg.Output.Package = firstNonEmpty(o.Package, cfg.Output.Package)
		if o.Path != "" {
			cfg.Output.Path = resolvePath(dir, o.Path)
		}
	}

	if ts := root.TileServer; ts != nil {
		preset := firstNonEmpty(ts.Preset, "maplibre")
		if _, err := tileserver.Preset(preset); err != nil {
			return nil, err
		}
		cfg.TileServer = &TileServer{Preset: preset, BaseURL: ts.BaseURL, APIKey: ts.APIKey}
	}

	m, err := translateMap(root.Map, cfg.TileServer)
	if err != nil {
		return nil, err
	}
	cfg.Map = m

	return cfg, nil
}

// translateMap applies the map block over the default view. The provider
// defaults to the tile_server preset and the token to its api_key.
func translateMap(b *mapBlock, ts *TileServer) (tileserver.MapOptions, error) {
	m := tileserver.DefaultMapOptions()
	if ts != nil {
		m.Provider = ts.Preset
		m.Token = ts.APIKey
	}
	if b == nil {
		return m, nil
	}

	for _, dim := range []struct {
		name  string
		value *int
		dst   *uint32
	}{{"width", b.Width, &m.Width}, {"height", b.Height, &m.Height}} {
		if dim.value == nil {
			continue
		}
		if *dim.value <= 0 {
			return m, fmt.Errorf("map: %s must be greater than 0", dim.name)
		}
		*dim.dst = uint32(*dim.value)
	}
	if b.Ratio != nil {
		m.Ratio = *b.Ratio
	}
	if b.Zoom != nil {
		m.Zoom = *b.Zoom
	}
	if b.Bearing != nil {
		m.Bearing = *b.Bearing
	}
	if b.Pitch != nil {
		m.Pitch = *b.Pitch
	}
	m.Provider = firstNonEmpty(b.Provider, m.Provider)
	m.Token = firstNonEmpty(b.Token, m.Token)

	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("map: %w", err)
	}
	return m, nil
}

// DriverTargets returns the targets to resolve, all of them when name is empty.
func (c *Config) DriverTargets(name string) ([]driver.Target, error) {
	var out []driver.Target
	for _, t := range c.Targets {
		if name != "" && t.Name != name {
			continue
		}
		out = append(out, driver.Target{
			Name:        t.Name,
			Report:      t.Report,
			BaseDir:     t.BaseDir,
			PassThrough: t.PassThrough,
			SkipBuild:   t.SkipBuild,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no target named %q in %s", name, c.Path)
	}
	return out, nil
}

// TileOptions builds the configured tile server options. Without a
// tile_server block the map provider decides, MapLibre by default.
func (c *Config) TileOptions() (*tileserver.Options, string, error) {
	if c.TileServer == nil {
		opts, err := c.Map.TileServer()
		if err != nil {
			return nil, "", err
		}
		return opts, c.Map.Token, nil
	}
	opts, err := tileserver.Preset(c.TileServer.Preset)
	if err != nil {
		return nil, "", err
	}
	if c.TileServer.BaseURL != "" {
		opts.WithBaseURL(c.TileServer.BaseURL)
	}
	return opts, c.TileServer.APIKey, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "~") {
		return p
	}
	return filepath.Join(dir, p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
