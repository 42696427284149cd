package ports

import "time"

// ReadGuard reports whether the calling goroutine holds a cooperative
// read-style permission that must not be held while waiting on the session
// lock. The query layer uses it to pick the synchronous versus offloaded
// dispatch path.
type ReadGuard interface {
	HeldByCaller() bool
}

// NoGuard is a ReadGuard for callers that never hold a read permission.
type NoGuard struct{}

func (NoGuard) HeldByCaller() bool { return false }

// Runner submits work to an independent execution context. Submitted work
// runs to completion even when the submitter stops waiting for it.
type Runner interface {
	Submit(fn func())
}

// GoRunner runs each submitted function on its own goroutine.
type GoRunner struct{}

func (GoRunner) Submit(fn func()) { go fn() }

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
