package nativebuild

import (
	"fmt"
	"os/exec"
	"strings"
)

// Generator defines the CMake generator used to configure the native build.
type Generator interface {
	Name() string      // Value passed to cmake -G
	BuildTool() string // Program that drives the generated build
}

// Ninja implements Generator for Ninja.
type Ninja struct{}

func (g *Ninja) Name() string {
	return "Ninja"
}

func (g *Ninja) BuildTool() string {
	return "ninja"
}

// Makefiles implements Generator for Unix Makefiles.
type Makefiles struct{}

func (g *Makefiles) Name() string {
	return "Unix Makefiles"
}

func (g *Makefiles) BuildTool() string {
	return "make"
}

// LookPathFunc matches exec.LookPath.
type LookPathFunc func(file string) (string, error)

// DetectGenerator prefers Ninja when it is installed and falls back to Makefiles.
func DetectGenerator(lookPath LookPathFunc) Generator {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("ninja"); err == nil {
		return &Ninja{}
	}
	return &Makefiles{}
}

// GeneratorByName maps a configured generator name to a Generator. An empty
// name means auto-detection; any other unsupported name is an error.
func GeneratorByName(name string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DetectGenerator(nil), nil
	case "ninja":
		return &Ninja{}, nil
	case "make", "makefiles", "unix makefiles":
		return &Makefiles{}, nil
	default:
		return nil, fmt.Errorf("unknown CMake generator %q (want Ninja or Unix Makefiles)", name)
	}
}
