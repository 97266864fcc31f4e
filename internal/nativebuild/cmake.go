// Package nativebuild drives the CMake build of the native engine and
// locates the dependency reports it writes next to its targets.
package nativebuild

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner executes a program and returns its combined output.
type CommandRunner func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

// ExecRunner runs commands through os/exec.
func ExecRunner(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// CMake configures and builds native targets in BuildDir.
type CMake struct {
	SourceDir string
	BuildDir  string
	Generator Generator
	Args      []string // Extra -D options passed at configure time
	Env       []string // Added on top of the inherited environment
	Run       CommandRunner
}

// NewCMake creates a CMake driver using os/exec and the detected generator.
func NewCMake(sourceDir, buildDir string) *CMake {
	return &CMake{
		SourceDir: sourceDir,
		BuildDir:  buildDir,
		Generator: DetectGenerator(nil),
		Run:       ExecRunner,
	}
}

func (c *CMake) environ() []string {
	return append(os.Environ(), c.Env...)
}

func (c *CMake) runner() CommandRunner {
	if c.Run == nil {
		return ExecRunner
	}
	return c.Run
}

// Configure generates the build tree.
func (c *CMake) Configure(ctx context.Context) error {
	args := []string{"-S", c.SourceDir, "-B", c.BuildDir}
	if c.Generator != nil {
		args = append(args, "-G", c.Generator.Name())
	}
	args = append(args, c.Args...)

	if out, err := c.runner()(ctx, c.environ(), "cmake", args...); err != nil {
		return &CommandError{Args: append([]string{"cmake"}, args...), Output: string(out), Err: err}
	}
	return nil
}

// Build builds a single target. The build tree is configured first when it
// has no CMakeCache.txt yet.
func (c *CMake) Build(ctx context.Context, target string) error {
	if _, err := os.Stat(filepath.Join(c.BuildDir, "CMakeCache.txt")); os.IsNotExist(err) {
		if err := c.Configure(ctx); err != nil {
			return err
		}
	}

	args := []string{"--build", c.BuildDir, "--target", target}
	if out, err := c.runner()(ctx, c.environ(), "cmake", args...); err != nil {
		return &CommandError{Args: append([]string{"cmake"}, args...), Output: string(out), Err: err}
	}
	return nil
}

// InstallDir is the directory static archives in the report are relative to.
func (c *CMake) InstallDir() string {
	return c.BuildDir
}

// ReportPath locates the dependency report of target. An empty name means
// <target>-deps.txt; relative names are resolved under the build dir.
func (c *CMake) ReportPath(target, name string) string {
	if name == "" {
		name = target + "-deps.txt"
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "~") {
		return name
	}
	return filepath.Join(c.BuildDir, name)
}

// CommandError is returned when cmake exits unsuccessfully.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + lastLines(out, 20)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
