package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
)

// TransportFactory builds the subprocess transport for a target. Process
// spawning and argument construction live behind it.
type TransportFactory func(target domain.Target) (ports.ReplTransport, error)

// SessionManager holds one Session per target, created on demand.
type SessionManager struct {
	factory TransportFactory
	locator ports.UnitLocator
	clock   ports.Clock
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[domain.TargetID]*Session
}

func NewSessionManager(factory TransportFactory, locator ports.UnitLocator, clock ports.Clock, logger *slog.Logger) *SessionManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionManager{
		factory:  factory,
		locator:  locator,
		clock:    clock,
		logger:   logger,
		sessions: map[domain.TargetID]*Session{},
	}
}

// Session returns the live session for a target, starting a fresh
// subprocess when the target is seen for the first time.
func (m *SessionManager) Session(ctx context.Context, target domain.Target) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[target.ID]
	m.mu.RUnlock()
	if ok {
		return session, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[target.ID]; ok {
		return session, nil
	}

	transport, err := m.factory(target)
	if err != nil {
		return nil, fmt.Errorf("build repl transport for %s: %w", target.ID, err)
	}
	if err := transport.Start(ctx); err != nil {
		return nil, fmt.Errorf("start repl for %s: %w", target.ID, err)
	}

	session = NewSession(target, transport, m.locator, m.clock, m.logger)
	m.sessions[target.ID] = session
	m.logger.Info("repl session created", "target", string(target.ID), "session", session.ID().String())

	return session, nil
}

// Existing returns the session for a target only if one is already live.
func (m *SessionManager) Existing(id domain.TargetID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	return session, ok
}

func (m *SessionManager) RestartAll(ctx context.Context, forceExit bool) error {
	var errs []error
	for _, session := range m.all() {
		if err := session.Restart(ctx, forceExit); err != nil {
			errs = append(errs, fmt.Errorf("restart %s: %w", session.Target().ID, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ExitAll terminates every live subprocess. Sessions stay registered; their
// next use reports unavailable until restarted.
func (m *SessionManager) ExitAll(forceExit bool) {
	for _, session := range m.all() {
		if err := session.transport.Exit(forceExit); err != nil {
			m.logger.Warn("exit repl", "target", string(session.Target().ID), "error", err)
		}
	}
}

// TargetSnapshot pairs a target with a consistent copy of its session's
// load state, for status rendering and the HTTP surface.
type TargetSnapshot struct {
	Target    domain.Target
	Session   domain.SessionSnapshot
	Available bool
	Starting  bool
	StartedAt time.Time
}

func (m *SessionManager) Snapshots() []TargetSnapshot {
	sessions := m.all()

	snapshots := make([]TargetSnapshot, 0, len(sessions))
	for _, session := range sessions {
		snapshots = append(snapshots, TargetSnapshot{
			Target:    session.Target(),
			Session:   session.Snapshot(),
			Available: session.transport.Available(),
			Starting:  session.transport.Starting(),
			StartedAt: session.StartedAt(),
		})
	}

	return snapshots
}

func (m *SessionManager) all() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Target().ID < sessions[j].Target().ID
	})

	return sessions
}
