package domain

import (
	"fmt"
	"strings"
)

// The interpreter's command vocabulary. These tokens are an external
// line-oriented protocol and must be reproduced verbatim.
const (
	CommandReload        = ":reload"
	CommandShowModules   = ":show modules"
	CommandSetByteCode   = ":set -fbyte-code"
	CommandSetObjectCode = ":set -fobject-code"
	CommandQuit          = ":quit"
)

// loadFailedMarker is the substring the interpreter prints on the summary
// line of a load that did not compile ("Failed, 2 modules loaded.").
const loadFailedMarker = "Failed, "

// ReplOutput carries the ordered output lines of one interpreter round trip.
type ReplOutput struct {
	Stdout []string
	Stderr []string
}

// LoadResult is the outcome of a load or reload that produced output.
type LoadResult struct {
	Output ReplOutput
	Failed bool
}

// LoadFailed reports whether the last non-empty stdout line carries the
// interpreter's failure marker.
func (o ReplOutput) LoadFailed() bool {
	for i := len(o.Stdout) - 1; i >= 0; i-- {
		line := strings.TrimSpace(o.Stdout[i])
		if line == "" {
			continue
		}
		return strings.Contains(line, loadFailedMarker)
	}

	return false
}

// ModuleNames extracts module names from a ":show modules" listing. Each
// line names a module in its first space-separated token.
func ModuleNames(lines []string) []string {
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if i := strings.IndexByte(name, ' '); i >= 0 {
			name = name[:i]
		}
		names = append(names, name)
	}

	return names
}

// Selection is a source span in interpreter coordinates (1-based lines and
// columns).
type Selection struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// QuotePath wraps a path in double quotes when it contains a space, so it
// survives embedding in a command line.
func QuotePath(path string) string {
	if strings.Contains(path, " ") {
		return `"` + path + `"`
	}
	return path
}

// LoadCommand builds the load command for an absolute path. In interpreted
// mode the path is prefixed with the interpreter's "*" modifier, which marks
// the unit as byte-code rather than compiled.
func LoadCommand(path string, interpreted bool) string {
	if interpreted {
		return ":load *" + QuotePath(path)
	}
	return ":load " + QuotePath(path)
}

func TypeAtCommand(path string, sel Selection, expression string) string {
	return fmt.Sprintf(":type-at %s %d %d %d %d %s",
		QuotePath(path), sel.StartLine, sel.StartColumn, sel.EndLine, sel.EndColumn, expression)
}

func LocAtCommand(path string, sel Selection, name string) string {
	return fmt.Sprintf(":loc-at %s %d %d %d %d %s",
		QuotePath(path), sel.StartLine, sel.StartColumn, sel.EndLine, sel.EndColumn, name)
}

func InfoCommand(name string) string {
	return ":info " + name
}

func BrowseCommand(moduleName string) string {
	return ":browse! " + moduleName
}
