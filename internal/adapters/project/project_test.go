package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocatorResolvesRelativeUnit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "Main.hs"), "main = undefined\n")

	locator, err := NewLocator(root)
	require.NoError(t, err)

	path, err := locator.AbsolutePath("src/Main.hs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src", "Main.hs"), path)
}

func TestLocatorRejectsMissingAndEscapingUnits(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	locator, err := NewLocator(root)
	require.NoError(t, err)

	_, err = locator.AbsolutePath("src/Gone.hs")
	assert.ErrorIs(t, err, domain.ErrUnitPathUnavailable)

	_, err = locator.AbsolutePath("../outside/Main.hs")
	assert.ErrorIs(t, err, domain.ErrUnitPathUnavailable)

	_, err = locator.AbsolutePath("")
	assert.ErrorIs(t, err, domain.ErrUnitPathUnavailable)

	_, err = locator.AbsolutePath("src")
	assert.ErrorIs(t, err, domain.ErrUnitPathUnavailable)
}

func TestLocatorRelative(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	locator, err := NewLocator(root)
	require.NoError(t, err)

	unit, ok := locator.Relative(filepath.Join(root, "src", "Main.hs"))
	require.True(t, ok)
	assert.Equal(t, domain.Unit(filepath.Join("src", "Main.hs")), unit)

	_, ok = locator.Relative("/somewhere/else/Main.hs")
	assert.False(t, ok)
}

func TestResolverPicksLongestSourceDirPrefix(t *testing.T) {
	t.Parallel()

	lib := domain.Target{ID: "pkg:lib", PackageName: "pkg", Stanza: domain.StanzaLibrary, SourceDirs: []string{"src"}}
	tests := domain.Target{ID: "pkg:test", PackageName: "pkg", Stanza: domain.StanzaTestSuite, SourceDirs: []string{"test", "src/internal"}}
	resolver := NewResolver([]domain.Target{lib, tests})

	target, err := resolver.TargetFor("src/Main.hs")
	require.NoError(t, err)
	assert.Equal(t, domain.TargetID("pkg:lib"), target.ID)

	target, err = resolver.TargetFor("src/internal/Util.hs")
	require.NoError(t, err)
	assert.Equal(t, domain.TargetID("pkg:test"), target.ID)

	target, err = resolver.TargetFor("test/Spec.hs")
	require.NoError(t, err)
	assert.Equal(t, domain.TargetID("pkg:test"), target.ID)
}

func TestResolverFailsWhenNoTargetOwnsUnit(t *testing.T) {
	t.Parallel()

	resolver := NewResolver([]domain.Target{
		{ID: "pkg:lib", PackageName: "pkg", Stanza: domain.StanzaLibrary, SourceDirs: []string{"src"}},
	})

	_, err := resolver.TargetFor("app/Main.hs")
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
}

func TestDiscoverPackagesReadsStackFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "stack.yaml"), "resolver: lts-22.0\npackages:\n  - core\n  - services/api\n")

	packages, err := DiscoverPackages(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", filepath.Join("services", "api")}, packages)
}

func TestDiscoverPackagesDefaultsToDot(t *testing.T) {
	t.Parallel()

	packages, err := DiscoverPackages(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"."}, packages)
}

func TestDiscoverTargetsSeedsLibraryTargets(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "stack.yaml"), "packages:\n  - core\n")

	targets, err := DiscoverTargets(root)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, domain.TargetID("core:lib"), targets[0].ID)
	assert.Equal(t, domain.StanzaLibrary, targets[0].Stanza)
	assert.Equal(t, []string{filepath.Join("core", "src")}, targets[0].SourceDirs)
	require.NoError(t, targets[0].Validate())
}
