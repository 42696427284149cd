package domain

import "errors"

var (
	ErrTargetNotFound = errors.New("target not found")
	ErrTargetExists   = errors.New("target already exists")
	// ErrUnitPathUnavailable means the unit has no resolvable on-disk path.
	// This is a configuration error, not a recoverable session state.
	ErrUnitPathUnavailable = errors.New("unit path unavailable")
	// ErrReplUnavailable means the interpreter process is not running or
	// stopped answering.
	ErrReplUnavailable = errors.New("repl unavailable")
	// ErrReplNotReady means the session cannot be restarted right now
	// (process gone or still starting).
	ErrReplNotReady = errors.New("repl not ready for restart")
)
