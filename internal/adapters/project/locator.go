package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
)

// Locator resolves project-relative units to absolute paths on disk. Units
// pointing outside the project root or at files that do not exist resolve
// to domain.ErrUnitPathUnavailable.
type Locator struct {
	root string
}

var _ ports.UnitLocator = (*Locator)(nil)

func NewLocator(root string) (*Locator, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	return &Locator{root: filepath.Clean(absRoot)}, nil
}

func (l *Locator) Root() string { return l.root }

func (l *Locator) AbsolutePath(unit domain.Unit) (string, error) {
	raw := strings.TrimSpace(string(unit))
	if raw == "" {
		return "", fmt.Errorf("empty unit: %w", domain.ErrUnitPathUnavailable)
	}

	path := raw
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	path = filepath.Clean(path)

	if path != l.root && !strings.HasPrefix(path, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("unit %s outside project root: %w", unit, domain.ErrUnitPathUnavailable)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("unit %s: %w", unit, domain.ErrUnitPathUnavailable)
	}
	if info.IsDir() {
		return "", fmt.Errorf("unit %s is a directory: %w", unit, domain.ErrUnitPathUnavailable)
	}

	return path, nil
}

// Relative maps an absolute path back to a unit when it lies inside the
// project root.
func (l *Locator) Relative(path string) (domain.Unit, bool) {
	rel, err := filepath.Rel(l.root, filepath.Clean(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}

	return domain.Unit(rel), true
}
