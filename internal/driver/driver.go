// Package driver runs the native build for each configured target, reads
// its dependency report and resolves it into linker directives.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mlnlink/internal/model"
	"mlnlink/internal/resolve"
)

// Builder is the slice of the native build system the driver depends on.
type Builder interface {
	Build(ctx context.Context, target string) error
	InstallDir() string
	ReportPath(target, name string) string
}

// Target describes one native library whose link line is resolved.
type Target struct {
	Name        string
	Report      string // Report file; empty means the builder's default
	BaseDir     string // Empty means the builder's install dir
	PassThrough bool
	SkipBuild   bool
}

// Driver ties the builder, the report reader and the resolver together.
type Driver struct {
	Builder    Builder
	Logger     *slog.Logger
	ReadReport func(path string) (string, error)
}

// New creates a Driver reading reports from disk.
func New(builder Builder, logger *slog.Logger) *Driver {
	return &Driver{
		Builder:    builder,
		Logger:     logger,
		ReadReport: model.ReadReport,
	}
}

// ResolveTarget builds target unless SkipBuild is set, then resolves its
// dependency report in a fresh pass.
func (d *Driver) ResolveTarget(ctx context.Context, target Target) (model.Resolution, error) {
	logger := d.Logger.With("target", target.Name)

	if !target.SkipBuild {
		logger.Info("Building native target.")
		if err := d.Builder.Build(ctx, target.Name); err != nil {
			return model.Resolution{}, fmt.Errorf("failed to build %s: %w", target.Name, err)
		}
	}

	reportPath := d.Builder.ReportPath(target.Name, target.Report)
	report, err := d.ReadReport(reportPath)
	if err != nil {
		return model.Resolution{}, fmt.Errorf("target %s: %w", target.Name, err)
	}
	logger.Debug("Dependency report read.", "path", reportPath, "bytes", len(report))

	baseDir := target.BaseDir
	if baseDir == "" {
		baseDir = d.Builder.InstallDir()
	}

	res, err := resolve.Resolve(report, resolve.Context{BaseDir: baseDir, PassThrough: target.PassThrough})
	if err != nil {
		var tokErr *resolve.TokenError
		if errors.As(err, &tokErr) {
			logger.Error("Dependency report rejected.", "token", tokErr.Token, "pos", tokErr.Pos)
		}
		return model.Resolution{}, fmt.Errorf("target %s: %s: %w", target.Name, reportPath, err)
	}
	res.Target = target.Name

	for _, diag := range res.Diagnostics {
		logger.Warn("Dropping unrecognized linker argument.", "token", diag.Token, "pos", diag.Pos)
	}
	logger.Info("Link directives resolved.", "directives", len(res.Directives), "dropped", len(res.Diagnostics))

	return res, nil
}

// ResolveAll resolves targets in order; each target gets its own pass.
func (d *Driver) ResolveAll(ctx context.Context, targets []Target) ([]model.Resolution, error) {
	results := make([]model.Resolution, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := d.ResolveTarget(ctx, target)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
