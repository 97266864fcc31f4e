package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"github.com/tcnksm/go-latest"

	"mlnlink/internal/config"
	"mlnlink/internal/driver"
	"mlnlink/internal/logging"
	"mlnlink/internal/model"
	"mlnlink/internal/nativebuild"
	"mlnlink/internal/render"
	"mlnlink/internal/resolve"
	"mlnlink/internal/tileserver"
	"mlnlink/internal/tui"
	"mlnlink/internal/web"
)

// ExitError carries the exit code main should use.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath  string
	target      string
	reportFile  string
	baseDir     string
	passThrough bool
	format      string
	kinds       []string
	output      string
	pkg         string
	noBuild     bool
	tui         bool
	web         bool
	port        int
	tile        string
	preset      string
	verbose     bool
	logFormat   string
	version     bool
	update      bool
	help        bool

	flags *pflag.FlagSet
}

func (o *options) changed(name string) bool {
	return o.flags.Changed(name)
}

func newFlagSet(opts *options, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("mlnlink", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: mlnlink [options]\n\n")
		fmt.Fprintf(stderr, "mlnlink builds the native map engine, reads the dependency report its\n")
		fmt.Fprintf(stderr, "build leaves behind and turns it into linker directives for cgo or cargo.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  mlnlink                               # Build and resolve every target in mlnlink.hcl\n")
		fmt.Fprintf(stderr, "  mlnlink -f cgo -o zz_link.go          # Write a cgo preamble\n")
		fmt.Fprintf(stderr, "  mlnlink -r build/core-deps.txt -f flags  # Resolve an existing report\n")
		fmt.Fprintf(stderr, "  mlnlink --tui                         # Browse directives interactively\n")
		fmt.Fprintf(stderr, "  mlnlink --tile 3/4/2 --preset maptiler  # Print a tile URL\n")
	}

	fs.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to the HCL config file")
	fs.StringVarP(&opts.target, "target", "t", "", "Resolve only the named target")
	fs.StringVarP(&opts.reportFile, "report-file", "r", "", "Resolve an existing dependency report instead of building")
	fs.StringVarP(&opts.baseDir, "base-dir", "b", "", "Directory static archives are relative to (default: the report's directory)")
	fs.BoolVarP(&opts.passThrough, "pass-through", "p", false, "Forward unrecognized report tokens to the linker")
	fs.StringVarP(&opts.format, "format", "f", "", "Output format: report, json, cgo, flags or cargo")
	fs.StringSliceVarP(&opts.kinds, "kind", "k", nil, "Keep only these directive kinds, e.g. link-static,add-search-path")
	fs.StringVarP(&opts.output, "output", "o", "", "Write the output to this file")
	fs.StringVar(&opts.pkg, "package", "", "Go package name of the generated cgo file")
	fs.BoolVar(&opts.noBuild, "no-build", false, "Skip the native build and read existing reports")
	fs.BoolVar(&opts.tui, "tui", false, "Browse the resolved directives in a terminal UI")
	fs.BoolVarP(&opts.web, "web", "w", false, "Serve the resolver over HTTP")
	fs.IntVar(&opts.port, "port", 8080, "Port for --web")
	fs.StringVar(&opts.tile, "tile", "", "Print the URL and bounds of tile z/x/y")
	fs.StringVar(&opts.preset, "preset", "", "Tile server preset: "+strings.Join(tileserver.PresetNames(), ", "))
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output and report token positions")
	fs.StringVar(&opts.logFormat, "log-format", "text", "Log output format: text or json")
	fs.BoolVarP(&opts.version, "version", "V", false, "Print version information")
	fs.BoolVarP(&opts.update, "update", "u", false, "Check for a newer release")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show this help message")
	return fs
}

// run is main without the process exit, so it can be tested.
func run(args []string, stdout, stderr io.Writer) error {
	opts := &options{}
	fs := newFlagSet(opts, stderr)
	opts.flags = fs

	if err := fs.Parse(args); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() > 0 {
		return &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}

	if opts.help {
		fs.Usage()
		return nil
	}
	if opts.version {
		fmt.Fprintf(stdout, "mlnlink version %s\n", model.Version)
		return nil
	}
	if opts.update {
		checkUpdate(stdout, model.Version, true)
		return nil
	}

	logFormat := strings.ToLower(opts.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	level := "info"
	if opts.verbose {
		level = "debug"
	}
	logger := logging.New(level, logFormat, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if opts.tile != "" {
		return runTile(stdout, opts, cfg)
	}
	if opts.web {
		return runWeb(ctx, opts, cfg)
	}

	drv, targets, err := plan(ctx, opts, cfg)
	if err != nil {
		return err
	}

	if opts.tui {
		return runTUI(ctx, drv, targets)
	}
	return runResolve(ctx, stdout, opts, cfg, drv, targets)
}

func checkUpdate(w io.Writer, currentVer string, explicit bool) {
	githubTag := &latest.GithubTag{
		Owner:      "maplibre",
		Repository: "mlnlink",
	}

	res, err := latest.Check(githubTag, currentVer)
	if err != nil {
		return // Silently fail
	}

	if res.Outdated {
		fmt.Fprintf(w, "\n✨ A new version is available: %s (you have %s)\n", res.Current, currentVer)
		fmt.Fprintln(w, "👉 Download it from https://github.com/maplibre/mlnlink/releases")
	} else if explicit {
		fmt.Fprintf(w, "✅ You are using the latest version: %s\n", currentVer)
	}
}

// loadConfig reads the config file. A missing default config is not an
// error when the mode does not need one.
func loadConfig(opts *options) (*config.Config, error) {
	needed := opts.reportFile == "" && opts.tile == "" && !opts.web
	if !opts.changed("config") && !needed {
		if _, err := os.Stat(opts.configPath); errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	return cfg, nil
}

// reportFileBuilder serves a single existing report without building.
type reportFileBuilder struct {
	path    string
	baseDir string
}

func (b *reportFileBuilder) Build(ctx context.Context, target string) error {
	return nil
}

func (b *reportFileBuilder) InstallDir() string {
	return b.baseDir
}

func (b *reportFileBuilder) ReportPath(target, name string) string {
	return b.path
}

// plan returns the driver and targets of the selected mode, with command
// line flags applied over the config.
func plan(ctx context.Context, opts *options, cfg *config.Config) (*driver.Driver, []driver.Target, error) {
	logger := logging.FromContext(ctx)

	if opts.reportFile != "" {
		baseDir := opts.baseDir
		if baseDir == "" {
			baseDir = filepath.Dir(opts.reportFile)
		}
		name := strings.TrimSuffix(filepath.Base(opts.reportFile), filepath.Ext(opts.reportFile))
		builder := &reportFileBuilder{path: opts.reportFile, baseDir: baseDir}
		target := driver.Target{Name: name, BaseDir: baseDir, PassThrough: opts.passThrough, SkipBuild: true}
		return driver.New(builder, logger), []driver.Target{target}, nil
	}

	targets, err := cfg.DriverTargets(opts.target)
	if err != nil {
		return nil, nil, &ExitError{Code: 2, Message: err.Error()}
	}
	for i := range targets {
		if opts.noBuild {
			targets[i].SkipBuild = true
		}
		if opts.changed("pass-through") {
			targets[i].PassThrough = opts.passThrough
		}
		if opts.baseDir != "" {
			targets[i].BaseDir = opts.baseDir
		}
	}

	generator, err := nativebuild.GeneratorByName(cfg.Build.Generator)
	if err != nil {
		return nil, nil, &ExitError{Code: 2, Message: err.Error()}
	}
	cmake := nativebuild.NewCMake(cfg.Build.SourceDir, cfg.Build.BuildDir)
	cmake.Generator = generator
	cmake.Args = cfg.Build.CMakeArgs
	logger.Debug("Native build configured.",
		"source_dir", cmake.SourceDir, "build_dir", cmake.BuildDir,
		"generator", generator.Name(), "build_tool", generator.BuildTool())

	return driver.New(cmake, logger), targets, nil
}

func runResolve(ctx context.Context, stdout io.Writer, opts *options, cfg *config.Config, drv *driver.Driver, targets []driver.Target) error {
	kinds := make([]model.DirectiveKind, 0, len(opts.kinds))
	for _, name := range opts.kinds {
		k, err := model.ParseKind(name)
		if err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
		kinds = append(kinds, k)
	}

	results, err := drv.ResolveAll(ctx, targets)
	if err != nil {
		if errors.Is(err, resolve.ErrMalformedInput) || errors.Is(err, resolve.ErrEncoding) {
			return &ExitError{Code: 1, Message: "Error: " + err.Error()}
		}
		return err
	}

	if len(kinds) > 0 {
		for i := range results {
			results[i] = results[i].Only(kinds...)
		}
	}

	out := render.Options{Package: "maplibre", Verbose: opts.verbose}
	format := render.FormatReport
	outputPath := ""
	if cfg != nil {
		format = cfg.Output.Format
		out.Package = cfg.Output.Package
		outputPath = cfg.Output.Path
	}
	if opts.format != "" {
		f, err := render.ParseFormat(opts.format)
		if err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
		format = f
	}
	if opts.pkg != "" {
		out.Package = opts.pkg
	}
	if opts.output != "" {
		outputPath = opts.output
	}

	if outputPath == "" {
		return render.Write(stdout, format, out, results)
	}

	var buf bytes.Buffer
	if err := render.Write(&buf, format, out, results); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", outputPath, err)
	}
	fmt.Fprintf(stdout, "Link directives saved to %s\n", outputPath)
	return nil
}

// tileOptions picks the tile server: --preset over the config, MapLibre
// when neither names one.
func tileOptions(opts *options, cfg *config.Config) (*tileserver.Options, string, error) {
	var (
		tiles  *tileserver.Options
		apiKey string
		err    error
	)
	if cfg != nil {
		tiles, apiKey, err = cfg.TileOptions()
	} else {
		tiles = tileserver.MapLibre()
	}
	if err != nil {
		return nil, "", err
	}
	if opts.preset != "" {
		if tiles, err = tileserver.Preset(opts.preset); err != nil {
			return nil, "", err
		}
	}
	return tiles, apiKey, nil
}

func runTile(stdout io.Writer, opts *options, cfg *config.Config) error {
	tile, err := tileserver.ParseTileID(opts.tile)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	tiles, apiKey, err := tileOptions(opts, cfg)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	u, err := tiles.TileURL(tile.String()+".pbf", apiKey)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	west, south, east, north := tile.Bounds()
	fmt.Fprintf(stdout, "%s\n", u)
	fmt.Fprintf(stdout, "bounds: west=%.6f south=%.6f east=%.6f north=%.6f\n", west, south, east, north)
	if opts.verbose {
		if cfg != nil {
			fmt.Fprintf(stdout, "map: %s\n", cfg.Map)
		}
		fmt.Fprintln(stdout, tiles)
	}
	return nil
}

func runWeb(ctx context.Context, opts *options, cfg *config.Config) error {
	logger := logging.FromContext(ctx)

	tiles, apiKey, err := tileOptions(opts, cfg)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	serverOpts := web.Options{Tiles: tiles, APIKey: apiKey, Logger: logger}
	if cfg != nil {
		if serverOpts.Targets, err = cfg.DriverTargets(opts.target); err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
	}

	srv, err := web.NewServer(serverOpts)
	if err != nil {
		return err
	}
	return web.StartServer(ctx, fmt.Sprintf(":%d", opts.port), srv, logger)
}

// tuiSource builds once, then re-reads reports when the policy is toggled.
func tuiSource(ctx context.Context, drv *driver.Driver, targets []driver.Target) tui.Source {
	built := false
	return func(passThrough *bool) ([]model.Resolution, error) {
		pass := make([]driver.Target, len(targets))
		copy(pass, targets)
		for i := range pass {
			if built {
				pass[i].SkipBuild = true
			}
			if passThrough != nil {
				pass[i].PassThrough = *passThrough
			}
		}
		res, err := drv.ResolveAll(ctx, pass)
		if err == nil {
			built = true
		}
		return res, err
	}
}

func runTUI(ctx context.Context, drv *driver.Driver, targets []driver.Target) error {
	// Log records would tear the alternate screen.
	quiet := *drv
	quiet.Logger = logging.Discard()

	m := tui.InitialModel(tuiSource(ctx, &quiet, targets))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
