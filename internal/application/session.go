package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
	"github.com/google/uuid"
)

// Session manages one interpreter subprocess for one target. Every
// session-mutating command sequence runs under the session mutex, so two
// goroutines loading into the same session execute strictly one after
// another. The transport sees at most one in-flight request because of it.
type Session struct {
	target    domain.Target
	transport ports.ReplTransport
	locator   ports.UnitLocator
	logger    *slog.Logger
	id        uuid.UUID
	startedAt time.Time

	mu    sync.Mutex
	state *loadState
}

func NewSession(target domain.Target, transport ports.ReplTransport, locator ports.UnitLocator, clock ports.Clock, logger *slog.Logger) *Session {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		target:    target,
		transport: transport,
		locator:   locator,
		logger:    logger,
		id:        uuid.New(),
		startedAt: clock.Now(),
		state:     newLoadState(),
	}
}

func (s *Session) Target() domain.Target { return s.target }

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) StartedAt() time.Time { return s.startedAt }

func (s *Session) Available() bool { return s.transport.Available() }

// Load brings a unit into the interpreter context. unitChanged means the
// unit's content changed since the last load; mustBeByteCode forces the
// interpreter into byte-code mode for this load. A nil result with nil
// error means the transport produced no output (process gone); load state
// is cleared in that case.
func (s *Session) Load(ctx context.Context, unit domain.Unit, unitChanged, mustBeByteCode bool) (*domain.LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(ctx, unit, unitChanged, mustBeByteCode)
}

func (s *Session) loadLocked(ctx context.Context, unit domain.Unit, unitChanged, mustBeByteCode bool) (*domain.LoadResult, error) {
	forceBytecodeLoad := mustBeByteCode && s.state.objectCode()

	status := s.state.fileStatus(unit)
	reload := !forceBytecodeLoad && unitChanged &&
		(status == domain.LoadStatusLoaded || status == domain.LoadStatusFailed)

	var out *domain.ReplOutput
	if reload {
		out = s.run(ctx, domain.CommandReload)
	} else {
		if forceBytecodeLoad {
			s.state.setObjectCode(false)
			s.run(ctx, domain.CommandSetByteCode)
		} else if !mustBeByteCode && !s.state.objectCode() {
			s.state.setObjectCode(true)
			s.run(ctx, domain.CommandSetObjectCode)
		}

		path, err := s.locator.AbsolutePath(unit)
		if err != nil {
			return nil, fmt.Errorf("locate unit %s: %w", unit, err)
		}
		out = s.run(ctx, domain.LoadCommand(path, mustBeByteCode))
	}

	if out == nil {
		s.state.clearAll()
		return nil, nil
	}

	failed := out.LoadFailed()
	s.refreshLoadedModulesLocked(ctx, unit)
	s.state.setLoaded(unit, failed)

	return &domain.LoadResult{Output: *out, Failed: failed}, nil
}

// ExecuteWithLoad runs a command that needs the unit resident. A unit in
// Failed state short-circuits to an empty successful output; commands are
// not re-run against a known-broken unit.
func (s *Session) ExecuteWithLoad(ctx context.Context, unit domain.Unit, command string, mustBeByteCode bool) (*domain.ReplOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.fileStatus(unit) {
	case domain.LoadStatusLoaded:
		if !mustBeByteCode || !s.state.objectCode() {
			return s.run(ctx, command), nil
		}
	case domain.LoadStatusFailed:
		return &domain.ReplOutput{}, nil
	case domain.LoadStatusOtherUnit, domain.LoadStatusNone:
	}

	result, err := s.loadLocked(ctx, unit, false, mustBeByteCode)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	if s.state.fileStatus(unit) == domain.LoadStatusLoaded {
		return s.run(ctx, command), nil
	}

	return &domain.ReplOutput{}, nil
}

// ExecuteModuleLoadedCommand runs a command whose definitions only need the
// named module to have been in scope at some point this session. A module
// once loaded stays usable even after a later reload evicted it from the
// active set.
func (s *Session) ExecuteModuleLoadedCommand(ctx context.Context, moduleName string, unit domain.Unit, command string) (*domain.ReplOutput, error) {
	if s.state.moduleLoaded(moduleName) {
		s.mu.Lock()
		defer s.mu.Unlock()

		return s.run(ctx, command), nil
	}

	return s.ExecuteWithLoad(ctx, unit, command, false)
}

// GetModuleIdentifiers lists the identifiers a module exports. When a
// source unit is given and the module is not browse-loaded yet, the unit is
// loaded first; a failed load means the identifiers cannot be fetched.
func (s *Session) GetModuleIdentifiers(ctx context.Context, moduleName string, unit *domain.Unit) (*domain.ReplOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if unit == nil || s.state.browseModuleLoaded(moduleName) {
		return s.run(ctx, domain.BrowseCommand(moduleName)), nil
	}

	result, err := s.loadLocked(ctx, *unit, false, false)
	if err != nil {
		return nil, err
	}
	if result != nil && !result.Failed {
		return s.run(ctx, domain.BrowseCommand(moduleName)), nil
	}

	s.logger.Info("cannot fetch module identifiers, owning unit is not loaded",
		"module", moduleName,
		"unit", string(*unit),
		"target", string(s.target.ID),
	)

	return nil, nil
}

// Run sends a raw command line through the session lock. Used by the
// interactive repl and anything that wants pass-through semantics.
func (s *Session) Run(ctx context.Context, command string) (*domain.ReplOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.run(ctx, command)
	if out == nil {
		return nil, domain.ErrReplUnavailable
	}

	return out, nil
}

// Restart replaces the subprocess. Load state deliberately survives: the
// recorded unit and module history are assumed valid until the next load
// attempt proves otherwise.
func (s *Session) Restart(ctx context.Context, forceExit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.transport.Available() || s.transport.Starting() {
		return domain.ErrReplNotReady
	}

	if err := s.transport.Exit(forceExit); err != nil {
		return fmt.Errorf("exit repl: %w", err)
	}
	if err := s.transport.Start(ctx); err != nil {
		return fmt.Errorf("start repl: %w", err)
	}

	return nil
}

func (s *Session) IsFileLoaded(unit domain.Unit) domain.LoadStatus { return s.state.fileStatus(unit) }

func (s *Session) IsModuleLoaded(name string) bool { return s.state.moduleLoaded(name) }

func (s *Session) IsBrowseModuleLoaded(name string) bool { return s.state.browseModuleLoaded(name) }

func (s *Session) ClearLoadedModules() { s.state.clearAll() }

func (s *Session) ClearLoadedModule() { s.state.clearUnit() }

func (s *Session) Snapshot() domain.SessionSnapshot { return s.state.snapshot() }

// refreshLoadedModulesLocked rebuilds the active module set from a fresh
// ":show modules" listing. No response leaves the sets as they were; the
// load path clears them on hard failure itself.
func (s *Session) refreshLoadedModulesLocked(ctx context.Context, unit domain.Unit) {
	out := s.run(ctx, domain.CommandShowModules)
	if out == nil {
		return
	}

	s.state.replaceLoadedModules(domain.ModuleNames(out.Stdout), unit)
}

// run collapses transport errors into absence. The caller sees nil exactly
// when the process is unavailable or stopped answering.
func (s *Session) run(ctx context.Context, command string) *domain.ReplOutput {
	out, err := s.transport.Execute(ctx, command)
	if err != nil {
		s.logger.Debug("repl command produced no output",
			"target", string(s.target.ID),
			"command", command,
			"error", err,
		)
		return nil
	}

	return out
}
