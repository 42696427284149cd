package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Targets []targetSchema `toml:"targets"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported targets schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type targetSchema struct {
	ID          string   `toml:"id"`
	Package     string   `toml:"package"`
	Stanza      string   `toml:"stanza"`
	SourceDirs  []string `toml:"source_dirs"`
	ReplCommand []string `toml:"repl_command,omitempty"`
	Timeout     string   `toml:"timeout,omitempty"`
}
