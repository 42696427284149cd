package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplOutputLoadFailedChecksLastNonEmptyLine(t *testing.T) {
	tests := []struct {
		name   string
		stdout []string
		want   bool
	}{
		{name: "ok summary", stdout: []string{"[1 of 3] Compiling Lib", "Ok, 3 modules loaded."}, want: false},
		{name: "failed summary", stdout: []string{"src/Lib.hs:4:1: error", "Failed, 2 modules loaded."}, want: true},
		{name: "trailing blank lines are skipped", stdout: []string{"Failed, 2 modules loaded.", "", "  "}, want: true},
		{name: "failure earlier in the output does not count", stdout: []string{"Failed, 1 module loaded.", "Ok, 2 modules loaded."}, want: false},
		{name: "empty output", stdout: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ReplOutput{Stdout: tt.stdout}
			assert.Equal(t, tt.want, out.LoadFailed())
		})
	}
}

func TestModuleNamesTakesFirstToken(t *testing.T) {
	lines := []string{
		"Main             ( src/Main.hs, interpreted )",
		"Data.App.Config  ( src/Data/App/Config.hs, interpreted )",
		"",
		"  Trailing       ( src/Trailing.hs, interpreted )",
	}

	assert.Equal(t, []string{"Main", "Data.App.Config", "Trailing"}, ModuleNames(lines))
}

func TestModuleNamesEmptyListing(t *testing.T) {
	assert.Empty(t, ModuleNames(nil))
	assert.Empty(t, ModuleNames([]string{"", "   "}))
}

func TestQuotePath(t *testing.T) {
	assert.Equal(t, "/home/dev/app/src/Main.hs", QuotePath("/home/dev/app/src/Main.hs"))
	assert.Equal(t, `"/home/dev/my app/src/Main.hs"`, QuotePath("/home/dev/my app/src/Main.hs"))
}

func TestLoadCommandMarksInterpretedUnits(t *testing.T) {
	assert.Equal(t, ":load /p/src/Main.hs", LoadCommand("/p/src/Main.hs", false))
	assert.Equal(t, ":load */p/src/Main.hs", LoadCommand("/p/src/Main.hs", true))
	assert.Equal(t, `:load *"/p/my src/Main.hs"`, LoadCommand("/p/my src/Main.hs", true))
}

func TestQueryCommandFormats(t *testing.T) {
	sel := Selection{StartLine: 12, StartColumn: 3, EndLine: 12, EndColumn: 9}

	assert.Equal(t, ":type-at /p/src/Main.hs 12 3 12 9 foldMap", TypeAtCommand("/p/src/Main.hs", sel, "foldMap"))
	assert.Equal(t, ":loc-at /p/src/Main.hs 12 3 12 9 foldMap", LocAtCommand("/p/src/Main.hs", sel, "foldMap"))
	assert.Equal(t, ":info Maybe", InfoCommand("Maybe"))
	assert.Equal(t, ":browse! Data.List", BrowseCommand("Data.List"))
}
