package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
)

const DefaultQueryTimeout = 30 * time.Second

// QueryService answers type-at, loc-at, info and browse queries against the
// owning target's session. Callers that hold a cooperative read permission
// get their round trip offloaded to the runner so the session lock is never
// taken on a permission-holding goroutine; everyone else runs inline.
type QueryService struct {
	sessions *SessionManager
	resolver ports.TargetResolver
	locator  ports.UnitLocator
	guard    ports.ReadGuard
	runner   ports.Runner
	timeout  time.Duration
	logger   *slog.Logger
}

func NewQueryService(sessions *SessionManager, resolver ports.TargetResolver, locator ports.UnitLocator, guard ports.ReadGuard, runner ports.Runner, timeout time.Duration, logger *slog.Logger) *QueryService {
	if guard == nil {
		guard = ports.NoGuard{}
	}
	if runner == nil {
		runner = ports.GoRunner{}
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &QueryService{
		sessions: sessions,
		resolver: resolver,
		locator:  locator,
		guard:    guard,
		runner:   runner,
		timeout:  timeout,
		logger:   logger,
	}
}

func (q *QueryService) FindTypeInfo(ctx context.Context, unit domain.Unit, sel domain.Selection, expression string) (*domain.ReplOutput, error) {
	return q.dispatch(ctx, func(ctx context.Context) (*domain.ReplOutput, error) {
		session, path, err := q.sessionAndPath(ctx, unit)
		if err != nil {
			return nil, err
		}

		return session.ExecuteWithLoad(ctx, unit, domain.TypeAtCommand(path, sel, expression), false)
	})
}

func (q *QueryService) FindLocationInfo(ctx context.Context, unit domain.Unit, sel domain.Selection, name string) (*domain.ReplOutput, error) {
	return q.dispatch(ctx, func(ctx context.Context) (*domain.ReplOutput, error) {
		session, path, err := q.sessionAndPath(ctx, unit)
		if err != nil {
			return nil, err
		}

		return session.ExecuteWithLoad(ctx, unit, domain.LocAtCommand(path, sel, name), false)
	})
}

// FindInfo resolves a name's definition and type. The module that brought
// the name into scope may already be resident from an earlier load, so the
// command goes through the module-loaded path.
func (q *QueryService) FindInfo(ctx context.Context, unit domain.Unit, moduleName, name string) (*domain.ReplOutput, error) {
	return q.dispatch(ctx, func(ctx context.Context) (*domain.ReplOutput, error) {
		session, _, err := q.sessionAndPath(ctx, unit)
		if err != nil {
			return nil, err
		}

		return session.ExecuteModuleLoadedCommand(ctx, moduleName, unit, domain.InfoCommand(name))
	})
}

func (q *QueryService) GetModuleIdentifiers(ctx context.Context, moduleName string, unit *domain.Unit) (*domain.ReplOutput, error) {
	return q.dispatch(ctx, func(ctx context.Context) (*domain.ReplOutput, error) {
		if unit == nil {
			return nil, fmt.Errorf("browse %s: a source unit is required to pick the owning session", moduleName)
		}

		session, _, err := q.sessionAndPath(ctx, *unit)
		if err != nil {
			return nil, err
		}

		return session.GetModuleIdentifiers(ctx, moduleName, unit)
	})
}

func (q *QueryService) sessionAndPath(ctx context.Context, unit domain.Unit) (*Session, string, error) {
	target, err := q.resolver.TargetFor(unit)
	if err != nil {
		return nil, "", fmt.Errorf("resolve target for %s: %w", unit, err)
	}

	session, err := q.sessions.Session(ctx, target)
	if err != nil {
		return nil, "", err
	}

	path, err := q.locator.AbsolutePath(unit)
	if err != nil {
		return nil, "", fmt.Errorf("locate unit %s: %w", unit, err)
	}

	return session, path, nil
}

type queryResult struct {
	out *domain.ReplOutput
	err error
}

// dispatch runs the operation inline unless the caller holds the read
// permission. Offloaded operations keep running after a timeout or
// cancellation; the wait unwinds with no result and the command still
// completes on the runner goroutine, updating session state behind the
// caller's back. "No result" here means temporarily unknown, not an error.
func (q *QueryService) dispatch(ctx context.Context, op func(context.Context) (*domain.ReplOutput, error)) (*domain.ReplOutput, error) {
	if !q.guard.HeldByCaller() {
		return op(ctx)
	}

	results := make(chan queryResult, 1)
	opCtx := context.WithoutCancel(ctx)
	q.runner.Submit(func() {
		out, err := op(opCtx)
		results <- queryResult{out: out, err: err}
	})

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case result := <-results:
		return result.out, result.err
	case <-ctx.Done():
		q.logger.Debug("query wait cancelled", "error", ctx.Err())
		return nil, nil
	case <-timer.C:
		q.logger.Debug("query wait timed out", "timeout", q.timeout.String())
		return nil, nil
	}
}
