package application

import (
	"sort"
	"sync"

	"github.com/bnema/hrepl/internal/domain"
)

// loadState is the per-session record of what the interpreter currently has
// resident. Reads are race-safe but not serialized against the session
// command lock, so a reader may observe a state mid-transition; callers
// needing query+action consistency must go through a locked Session entry
// point.
type loadState struct {
	mu                sync.RWMutex
	loaded            *domain.LoadedUnit
	loadedModules     map[string]domain.Unit
	everLoadedModules map[string]domain.Unit
	objectCodeEnabled bool
}

func newLoadState() *loadState {
	return &loadState{
		loadedModules:     map[string]domain.Unit{},
		everLoadedModules: map[string]domain.Unit{},
		objectCodeEnabled: true,
	}
}

func (s *loadState) fileStatus(unit domain.Unit) domain.LoadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.loaded == nil:
		return domain.LoadStatusNone
	case s.loaded.Unit != unit:
		return domain.LoadStatusOtherUnit
	case s.loaded.Failed:
		return domain.LoadStatusFailed
	default:
		return domain.LoadStatusLoaded
	}
}

func (s *loadState) moduleLoaded(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.everLoadedModules[name]
	return ok
}

func (s *loadState) browseModuleLoaded(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.loadedModules[name]
	return ok
}

func (s *loadState) setLoaded(unit domain.Unit, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = &domain.LoadedUnit{Unit: unit, Failed: failed}
}

// replaceLoadedModules rebuilds the active module set from a fresh listing
// and folds every name into the monotone ever-loaded set.
func (s *loadState) replaceLoadedModules(names []string, unit domain.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadedModules = make(map[string]domain.Unit, len(names))
	for _, name := range names {
		s.loadedModules[name] = unit
		s.everLoadedModules[name] = unit
	}
}

// clearUnit drops only the current-unit pointer, keeping module history.
func (s *loadState) clearUnit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = nil
}

// clearAll resets the session's load state entirely.
func (s *loadState) clearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = nil
	s.loadedModules = map[string]domain.Unit{}
	s.everLoadedModules = map[string]domain.Unit{}
}

func (s *loadState) objectCode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.objectCodeEnabled
}

func (s *loadState) setObjectCode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objectCodeEnabled = enabled
}

func (s *loadState) snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.SessionSnapshot{
		LoadedModules:     make([]string, 0, len(s.loadedModules)),
		EverLoadedModules: make([]string, 0, len(s.everLoadedModules)),
		ObjectCodeEnabled: s.objectCodeEnabled,
	}
	if s.loaded != nil {
		loaded := *s.loaded
		snap.Loaded = &loaded
	}
	for name := range s.loadedModules {
		snap.LoadedModules = append(snap.LoadedModules, name)
	}
	for name := range s.everLoadedModules {
		snap.EverLoadedModules = append(snap.EverLoadedModules, name)
	}
	sort.Strings(snap.LoadedModules)
	sort.Strings(snap.EverLoadedModules)

	return snap
}
