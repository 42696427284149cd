package ghci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
)

// promptSentinel terminates every interpreter response. The prompt is set
// to the SOH control byte plus a newline right after spawn, so the sentinel
// always arrives as its own line.
const promptSentinel = "\x01"

const setPromptCommand = `:set prompt "\SOH\n"`

const exitGracePeriod = 3 * time.Second

// Transport runs the interpreter subprocess and frames its line-oriented
// stdout by the prompt sentinel. One request is in flight at a time; the
// Session lock upholds that from the caller side and the transport's own
// mutex backstops it.
type Transport struct {
	argv    []string
	dir     string
	timeout time.Duration
	logger  *slog.Logger

	mu sync.Mutex

	procMu sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}

	stderrMu sync.Mutex
	stderr   []string

	available atomic.Bool
	starting  atomic.Bool
}

var _ ports.ReplTransport = (*Transport)(nil)

func New(argv []string, dir string, timeout time.Duration, logger *slog.Logger) (*Transport, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("repl command is empty")
	}
	if timeout <= 0 {
		timeout = domain.DefaultCommandTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		argv:    argv,
		dir:     dir,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (t *Transport) Available() bool { return t.available.Load() }

func (t *Transport) Starting() bool { return t.starting.Load() }

// Start spawns the subprocess, installs the sentinel prompt and waits for
// the first prompt to confirm the interpreter answers.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.available.Load() {
		return nil
	}

	t.starting.Store(true)
	defer t.starting.Store(false)

	cmd := exec.Command(t.argv[0], t.argv[1:]...)
	cmd.Dir = t.dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn repl %q: %w", t.argv[0], err)
	}

	lines := make(chan string, 256)
	done := make(chan struct{})

	t.procMu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.lines = lines
	t.done = done
	t.procMu.Unlock()

	go t.readStdout(stdout, lines)
	go t.readStderr(stderr)
	go func() {
		_ = cmd.Wait()
		t.available.Store(false)
		close(done)
	}()

	if err := t.writeLine(setPromptCommand); err != nil {
		t.kill()
		return fmt.Errorf("install prompt sentinel: %w", err)
	}

	if _, err := t.collect(ctx, lines); err != nil {
		t.kill()
		return fmt.Errorf("wait for first prompt: %w", err)
	}

	t.available.Store(true)
	t.logger.Debug("repl started", "argv", strings.Join(t.argv, " "))

	return nil
}

// Execute sends a command line and reads output lines up to the sentinel.
func (t *Transport) Execute(ctx context.Context, command string) (*domain.ReplOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.available.Load() {
		return nil, domain.ErrReplUnavailable
	}

	t.procMu.Lock()
	lines := t.lines
	t.procMu.Unlock()

	t.drain(lines)

	if err := t.writeLine(command); err != nil {
		t.available.Store(false)
		return nil, fmt.Errorf("write command: %w", domain.ErrReplUnavailable)
	}

	stdout, err := t.collect(ctx, lines)
	if err != nil {
		return nil, err
	}

	return &domain.ReplOutput{Stdout: stdout, Stderr: t.takeStderr()}, nil
}

// Exit stops the subprocess. Unless forced it asks the interpreter to quit
// first and only kills when the grace period passes.
func (t *Transport) Exit(force bool) error {
	t.available.Store(false)

	t.procMu.Lock()
	done := t.done
	t.procMu.Unlock()

	if done == nil {
		return nil
	}

	if !force {
		if err := t.writeLine(domain.CommandQuit); err == nil {
			select {
			case <-done:
				return nil
			case <-time.After(exitGracePeriod):
			}
		}
	}

	t.kill()
	<-done

	return nil
}

func (t *Transport) collect(ctx context.Context, lines chan string) ([]string, error) {
	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	var collected []string
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.available.Store(false)
				return nil, fmt.Errorf("repl exited mid-command: %w", domain.ErrReplUnavailable)
			}
			if idx := strings.Index(line, promptSentinel); idx >= 0 {
				if rest := line[:idx]; rest != "" {
					collected = append(collected, rest)
				}
				return collected, nil
			}
			collected = append(collected, line)
		case <-ctx.Done():
			return nil, fmt.Errorf("command cancelled: %w", domain.ErrReplUnavailable)
		case <-timer.C:
			return nil, fmt.Errorf("command timed out after %s: %w", t.timeout, domain.ErrReplUnavailable)
		}
	}
}

// drain discards output that arrived between commands, e.g. trailing
// warnings the interpreter printed after the previous response was framed.
func (t *Transport) drain(lines chan string) {
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (t *Transport) writeLine(line string) error {
	t.procMu.Lock()
	stdin := t.stdin
	t.procMu.Unlock()

	if stdin == nil {
		return domain.ErrReplUnavailable
	}

	_, err := io.WriteString(stdin, line+"\n")
	return err
}

func (t *Transport) readStdout(r io.Reader, lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func (t *Transport) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		t.stderrMu.Lock()
		t.stderr = append(t.stderr, scanner.Text())
		t.stderrMu.Unlock()
	}
}

func (t *Transport) takeStderr() []string {
	t.stderrMu.Lock()
	defer t.stderrMu.Unlock()

	taken := t.stderr
	t.stderr = nil
	return taken
}

func (t *Transport) kill() {
	t.procMu.Lock()
	defer t.procMu.Unlock()

	if t.stdin != nil {
		_ = t.stdin.Close()
	}
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
}
