package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
	}
	return path
}

// ReadReport reads a dependency report written by the native build.
func ReadReport(path string) (string, error) {
	content, err := os.ReadFile(ExpandTilde(path))
	if err != nil {
		return "", fmt.Errorf("could not read dependency report: %w", err)
	}
	return string(content), nil
}

// TokenContext represents a report token with the tokens around it
type TokenContext struct {
	Before2   string // Two tokens before the target
	Before1   string // Token before the target
	Target    string // The actual target token
	After1    string // Token after the target
	After2    string // Two tokens after the target
	Pos       int    // Position of the target
	HasBefore bool   // Whether there's at least one token before
	HasAfter  bool   // Whether there's at least one token after
	ErrorMsg  string // Set when pos is out of range
}

// GetTokenContext returns the token at pos with up to two neighbours each side.
func GetTokenContext(report string, pos int) TokenContext {
	result := TokenContext{Pos: pos}

	tokens := strings.Fields(report)
	if pos < 0 || pos >= len(tokens) {
		result.ErrorMsg = fmt.Sprintf("Token %d out of range (report has %d tokens)", pos, len(tokens))
		return result
	}

	result.Target = tokens[pos]
	if pos > 1 {
		result.Before2 = tokens[pos-2]
	}
	if pos > 0 {
		result.Before1 = tokens[pos-1]
		result.HasBefore = true
	}
	if pos+1 < len(tokens) {
		result.After1 = tokens[pos+1]
		result.HasAfter = true
	}
	if pos+2 < len(tokens) {
		result.After2 = tokens[pos+2]
	}
	return result
}

// String renders the context on one line with the target bracketed.
func (c TokenContext) String() string {
	if c.ErrorMsg != "" {
		return c.ErrorMsg
	}
	var parts []string
	if c.Before2 != "" {
		parts = append(parts, c.Before2)
	}
	if c.HasBefore {
		parts = append(parts, c.Before1)
	}
	parts = append(parts, "["+c.Target+"]")
	if c.HasAfter {
		parts = append(parts, c.After1)
	}
	if c.After2 != "" {
		parts = append(parts, c.After2)
	}
	return strings.Join(parts, " ")
}
