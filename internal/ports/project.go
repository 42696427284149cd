package ports

import "github.com/bnema/hrepl/internal/domain"

// UnitLocator resolves a logical source unit to an absolute file-system
// path. It returns domain.ErrUnitPathUnavailable when the unit exists only
// in memory or lies outside the project; that is a configuration error, not
// a recoverable session state.
type UnitLocator interface {
	AbsolutePath(unit domain.Unit) (string, error)
}

// TargetResolver picks the target that owns a source unit.
type TargetResolver interface {
	TargetFor(unit domain.Unit) (domain.Target, error)
}
