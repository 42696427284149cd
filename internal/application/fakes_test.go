package application

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTransport records every command it receives and answers from a
// scripted response table. It also detects overlapping Execute calls, which
// the session lock must make impossible.
type fakeTransport struct {
	mu        sync.Mutex
	commands  []string
	responses map[string]*domain.ReplOutput
	loadOut   *domain.ReplOutput
	modules   []string
	execErr   error
	delay     time.Duration

	available atomic.Bool
	starting  atomic.Bool
	inFlight  atomic.Int32
	overlaps  atomic.Int32
	exits     atomic.Int32
	starts    atomic.Int32
}

var _ ports.ReplTransport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	t := &fakeTransport{
		responses: map[string]*domain.ReplOutput{},
		loadOut:   &domain.ReplOutput{Stdout: []string{"Ok, 1 module loaded."}},
	}
	t.available.Store(true)
	return t
}

func (t *fakeTransport) Execute(_ context.Context, command string) (*domain.ReplOutput, error) {
	if t.inFlight.Add(1) > 1 {
		t.overlaps.Add(1)
	}
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	t.inFlight.Add(-1)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.commands = append(t.commands, command)

	if t.execErr != nil {
		return nil, t.execErr
	}
	if out, ok := t.responses[command]; ok {
		return out, nil
	}
	if command == domain.CommandShowModules {
		lines := make([]string, 0, len(t.modules))
		for _, m := range t.modules {
			lines = append(lines, m+"  ( src/"+m+".hs, interpreted )")
		}
		return &domain.ReplOutput{Stdout: lines}, nil
	}
	if strings.HasPrefix(command, ":load") || command == domain.CommandReload {
		out := *t.loadOut
		return &out, nil
	}

	return &domain.ReplOutput{}, nil
}

func (t *fakeTransport) Available() bool { return t.available.Load() }

func (t *fakeTransport) Starting() bool { return t.starting.Load() }

func (t *fakeTransport) Start(_ context.Context) error {
	t.starts.Add(1)
	t.available.Store(true)
	return nil
}

func (t *fakeTransport) Exit(_ bool) error {
	t.exits.Add(1)
	t.available.Store(false)
	return nil
}

func (t *fakeTransport) sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]string(nil), t.commands...)
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.commands)
}

// fakeLocator resolves any unit under a fixed root.
type fakeLocator struct {
	root string
	fail map[domain.Unit]bool
}

var _ ports.UnitLocator = (*fakeLocator)(nil)

func (l *fakeLocator) AbsolutePath(unit domain.Unit) (string, error) {
	if l.fail[unit] {
		return "", domain.ErrUnitPathUnavailable
	}
	root := l.root
	if root == "" {
		root = "/project"
	}
	return root + "/" + string(unit), nil
}

type fakeResolver struct {
	target domain.Target
	err    error
}

var _ ports.TargetResolver = (*fakeResolver)(nil)

func (r *fakeResolver) TargetFor(domain.Unit) (domain.Target, error) {
	if r.err != nil {
		return domain.Target{}, r.err
	}
	return r.target, nil
}

type staticGuard bool

func (g staticGuard) HeldByCaller() bool { return bool(g) }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }
