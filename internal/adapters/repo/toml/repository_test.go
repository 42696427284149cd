package toml

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()

	targetsPath := filepath.Join(t.TempDir(), "targets.toml")
	config := viper.New()
	config.Set("targets.path", targetsPath)

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo, targetsPath
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	lib := domain.Target{
		ID:          "app:lib",
		PackageName: "app",
		Stanza:      domain.StanzaLibrary,
		SourceDirs:  []string{"src"},
		Timeout:     45 * time.Second,
	}
	tests := domain.Target{
		ID:          "app:test",
		PackageName: "app",
		Stanza:      domain.StanzaTestSuite,
		SourceDirs:  []string{"test"},
		ReplCommand: []string{"stack", "repl", "app:test"},
	}

	require.NoError(t, repo.Save(context.Background(), lib))
	require.NoError(t, repo.Save(context.Background(), tests))

	got, err := repo.GetByID(context.Background(), lib.ID)
	require.NoError(t, err)
	assert.Equal(t, lib, got)

	targets, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Target{lib, tests}, targets)
}

func TestRepositorySaveUpdatesExistingTarget(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	target := domain.Target{ID: "app:lib", PackageName: "app", Stanza: domain.StanzaLibrary, SourceDirs: []string{"src"}}
	require.NoError(t, repo.Save(context.Background(), target))

	target.SourceDirs = []string{"src", "lib"}
	require.NoError(t, repo.Save(context.Background(), target))

	targets, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, []string{"src", "lib"}, targets[0].SourceDirs)
}

func TestRepositorySaveRejectsInvalidTarget(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	err := repo.Save(context.Background(), domain.Target{ID: "bad"})
	require.Error(t, err)
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), "missing:lib")
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
}

func TestRepositoryRejectsNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	repo, targetsPath := newTestRepository(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(targetsPath), 0o755))
	require.NoError(t, os.WriteFile(targetsPath, []byte("version = 99\n"), 0o600))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported targets schema version")
}

func TestRepositoryWritesAreAtomicUnderConcurrency(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			target := domain.Target{
				ID:          domain.TargetID("pkg:lib" + strconv.Itoa(i)),
				PackageName: "pkg",
				Stanza:      domain.StanzaLibrary,
				SourceDirs:  []string{"src"},
			}
			assert.NoError(t, repo.Save(context.Background(), target))
		}(i)
	}
	wg.Wait()

	targets, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, targets, writers)
}

func TestRepositoryHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
