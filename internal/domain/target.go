package domain

import (
	"fmt"
	"strings"
	"time"
)

type TargetID string

type StanzaType string

const (
	StanzaLibrary    StanzaType = "library"
	StanzaExecutable StanzaType = "executable"
	StanzaTestSuite  StanzaType = "test-suite"
	StanzaBenchmark  StanzaType = "benchmark"
)

const DefaultCommandTimeout = 60 * time.Second

// Target is one compilable component of the project. Each target owns at
// most one live interpreter session.
type Target struct {
	ID          TargetID
	PackageName string
	Stanza      StanzaType
	SourceDirs  []string
	// ReplCommand is the argv used to spawn the interpreter for this
	// target. Empty means the configured project default.
	ReplCommand []string
	// Timeout bounds a single command round trip against the session.
	Timeout time.Duration
}

func (t Target) Validate() error {
	if strings.TrimSpace(string(t.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(t.PackageName) == "" {
		return fmt.Errorf("package name is required")
	}
	switch t.Stanza {
	case StanzaLibrary, StanzaExecutable, StanzaTestSuite, StanzaBenchmark:
	case "":
		return fmt.Errorf("stanza is required")
	default:
		return fmt.Errorf("unsupported stanza %q", t.Stanza)
	}
	if t.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	return nil
}

// CommandTimeout returns the target's per-command timeout, falling back to
// the project default when the target does not set one.
func (t Target) CommandTimeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultCommandTimeout
}

func (t *Target) NormalizeSourceDirs() {
	if t == nil {
		return
	}

	dirs := make([]string, 0, len(t.SourceDirs))
	seen := make(map[string]struct{}, len(t.SourceDirs))
	for _, dir := range t.SourceDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		dirs = append(dirs, trimmed)
	}

	t.SourceDirs = dirs
}
