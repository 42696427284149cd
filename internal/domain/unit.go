package domain

// Unit identifies a single compilable source unit (one Haskell source file),
// as a project-relative path.
type Unit string

// LoadedUnit records the unit currently resident in a session's interpreter
// context and whether its last load failed.
type LoadedUnit struct {
	Unit   Unit
	Failed bool
}

// LoadStatus describes how a queried unit relates to a session's currently
// loaded unit.
type LoadStatus string

const (
	LoadStatusLoaded    LoadStatus = "loaded"
	LoadStatusFailed    LoadStatus = "failed"
	LoadStatusOtherUnit LoadStatus = "other-unit-loaded"
	LoadStatusNone      LoadStatus = "no-unit-loaded"
)

// SessionSnapshot is a consistent copy of a session's load state, taken in
// one shot so readers never observe the maps and the unit pointer from
// different moments.
type SessionSnapshot struct {
	Loaded            *LoadedUnit
	LoadedModules     []string
	EverLoadedModules []string
	ObjectCodeEnabled bool
}
