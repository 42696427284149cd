package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
)

// Resolver picks the target owning a unit by the longest source-dir prefix
// match on the unit's project-relative path.
type Resolver struct {
	targets []domain.Target
}

var _ ports.TargetResolver = (*Resolver)(nil)

func NewResolver(targets []domain.Target) *Resolver {
	return &Resolver{targets: targets}
}

func (r *Resolver) TargetFor(unit domain.Unit) (domain.Target, error) {
	rel := filepath.ToSlash(filepath.Clean(string(unit)))

	var best domain.Target
	bestLen := -1
	for _, target := range r.targets {
		for _, dir := range target.SourceDirs {
			prefix := filepath.ToSlash(filepath.Clean(dir))
			if prefix != "." && !strings.HasPrefix(rel, prefix+"/") && rel != prefix {
				continue
			}
			if len(prefix) > bestLen {
				best = target
				bestLen = len(prefix)
			}
		}
	}

	if bestLen < 0 {
		return domain.Target{}, fmt.Errorf("no target owns %s: %w", unit, domain.ErrTargetNotFound)
	}

	return best, nil
}
