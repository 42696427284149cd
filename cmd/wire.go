package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/hrepl/internal/adapters/ghci"
	"github.com/bnema/hrepl/internal/adapters/project"
	statusadapter "github.com/bnema/hrepl/internal/adapters/render/status"
	tomlrepo "github.com/bnema/hrepl/internal/adapters/repo/toml"
	"github.com/bnema/hrepl/internal/application"
	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
	"github.com/spf13/viper"
)

const configDir = ".hrepl"

type app struct {
	config         *viper.Viper
	targets        ports.TargetRepository
	sessions       *application.SessionManager
	queries        *application.QueryService
	locator        *project.Locator
	resolver       ports.TargetResolver
	logger         *slog.Logger
	statusRenderer func([]application.TargetSnapshot, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg := viper.New()
	cfg.SetEnvPrefix("HREPL")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	cfg.SetDefault("repl.command", []string{"stack", "repl"})
	cfg.SetDefault("repl.timeout", domain.DefaultCommandTimeout.String())
	cfg.SetDefault("query.timeout", application.DefaultQueryTimeout.String())
	cfg.SetDefault("serve.listen", "127.0.0.1:8391")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	repo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire target repository: %w", err)
	}

	projectRoot := cfg.GetString("project.root")
	if projectRoot == "" {
		projectRoot, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	}

	locator, err := project.NewLocator(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("wire unit locator: %w", err)
	}

	logger := newLogger(cfg)

	sessions := application.NewSessionManager(
		replTransportFactory(cfg, locator.Root(), logger),
		locator,
		ports.SystemClock{},
		logger,
	)

	resolver := &repoResolver{targets: repo}

	queries := application.NewQueryService(
		sessions,
		resolver,
		locator,
		ports.NoGuard{},
		ports.GoRunner{},
		configDuration(cfg, "query.timeout", application.DefaultQueryTimeout),
		logger,
	)

	return &app{
		config:         cfg,
		targets:        repo,
		sessions:       sessions,
		queries:        queries,
		locator:        locator,
		resolver:       resolver,
		logger:         logger,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

func newLogger(cfg *viper.Viper) *slog.Logger {
	level := slog.LevelWarn
	if cfg.GetBool("log.verbose") {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func replTransportFactory(cfg *viper.Viper, projectRoot string, logger *slog.Logger) application.TransportFactory {
	return func(target domain.Target) (ports.ReplTransport, error) {
		argv := target.ReplCommand
		if len(argv) == 0 {
			argv = append(append([]string{}, cfg.GetStringSlice("repl.command")...), string(target.ID))
		}

		timeout := target.CommandTimeout()
		if target.Timeout == 0 {
			timeout = configDuration(cfg, "repl.timeout", domain.DefaultCommandTimeout)
		}

		return ghci.New(argv, projectRoot, timeout, logger)
	}
}

func configDuration(cfg *viper.Viper, key string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(cfg.GetString(key))
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

// repoResolver reads the targets file on every resolution, so edits to the
// file apply without restarting the daemon.
type repoResolver struct {
	targets ports.TargetRepository
}

var _ ports.TargetResolver = (*repoResolver)(nil)

func (r *repoResolver) TargetFor(unit domain.Unit) (domain.Target, error) {
	targets, err := r.targets.List(context.Background())
	if err != nil {
		return domain.Target{}, fmt.Errorf("list targets: %w", err)
	}

	return project.NewResolver(targets).TargetFor(unit)
}

func printOutput(w io.Writer, out *domain.ReplOutput) {
	if out == nil {
		return
	}
	for _, line := range out.Stdout {
		_, _ = fmt.Fprintln(w, line)
	}
	for _, line := range out.Stderr {
		_, _ = fmt.Fprintln(w, line)
	}
}
