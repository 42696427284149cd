package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName        = "config"
	configType        = "toml"
	targetsPathKey    = "targets.path"
	targetsFileMode   = 0o600
	targetsDirMode    = 0o700
	targetsConfigDir  = ".hrepl"
	targetsConfigFile = "targets.toml"
	tempFilePattern   = ".targets-*.toml.tmp"
)

type Repository struct {
	targetsPath string
	mu          *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.TargetRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, targetsConfigDir, targetsConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, targetsConfigDir))
	cfg.SetDefault(targetsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	targetsPath := cfg.GetString(targetsPathKey)
	if targetsPath == "" {
		return nil, errors.New("targets path is empty")
	}
	targetsPath, err = normalizeTargetsPath(targetsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{targetsPath: targetsPath, mu: lockForPath(targetsPath)}, nil
}

func (r *Repository) Save(ctx context.Context, target domain.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("validate target: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	encoded := toSchema(target)
	updated := false
	for i := range file.Targets {
		if file.Targets[i].ID == encoded.ID {
			file.Targets[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Targets = append(file.Targets, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) GetByID(ctx context.Context, id domain.TargetID) (domain.Target, error) {
	if err := ctx.Err(); err != nil {
		return domain.Target{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Target{}, err
	}
	file.applyDefaults()

	for _, entry := range file.Targets {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.Target{}, domain.ErrTargetNotFound
}

func (r *Repository) List(ctx context.Context) ([]domain.Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}
	file.applyDefaults()

	targets := make([]domain.Target, 0, len(file.Targets))
	for _, entry := range file.Targets {
		targets = append(targets, fromSchema(entry))
	}

	return targets, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.targetsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read targets file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode targets file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeTargetsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve targets path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.targetsPath), targetsDirMode); err != nil {
		return fmt.Errorf("create targets directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode targets file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.targetsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp targets file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp targets file: %w", err)
	}

	if err := tempFile.Chmod(targetsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp targets file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp targets file: %w", err)
	}

	if err := os.Rename(tempName, r.targetsPath); err != nil {
		return fmt.Errorf("replace targets file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.targetsPath, targetsFileMode); err != nil {
		return fmt.Errorf("chmod targets file: %w", err)
	}

	return nil
}

func toSchema(target domain.Target) targetSchema {
	timeout := ""
	if target.Timeout > 0 {
		timeout = target.Timeout.String()
	}

	return targetSchema{
		ID:          string(target.ID),
		Package:     target.PackageName,
		Stanza:      string(target.Stanza),
		SourceDirs:  target.SourceDirs,
		ReplCommand: target.ReplCommand,
		Timeout:     timeout,
	}
}

func fromSchema(entry targetSchema) domain.Target {
	target := domain.Target{
		ID:          domain.TargetID(entry.ID),
		PackageName: entry.Package,
		Stanza:      domain.StanzaType(entry.Stanza),
		SourceDirs:  entry.SourceDirs,
		ReplCommand: entry.ReplCommand,
		Timeout:     parseTimeout(entry.Timeout),
	}
	target.NormalizeSourceDirs()

	return target
}

func parseTimeout(raw string) time.Duration {
	if raw == "" {
		return 0
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed < 0 {
		return 0
	}

	return parsed
}
