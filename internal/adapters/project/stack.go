package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/hrepl/internal/domain"
	"gopkg.in/yaml.v3"
)

const stackFileName = "stack.yaml"

type stackFile struct {
	Packages []string `yaml:"packages"`
}

// DiscoverPackages reads the project's stack.yaml packages list. A missing
// file yields the project root itself as the single package, matching how
// stack treats an implicit "." entry.
func DiscoverPackages(root string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(root, stackFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{"."}, nil
		}
		return nil, fmt.Errorf("read %s: %w", stackFileName, err)
	}

	var file stackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", stackFileName, err)
	}
	if len(file.Packages) == 0 {
		return []string{"."}, nil
	}

	packages := make([]string, 0, len(file.Packages))
	for _, pkg := range file.Packages {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			continue
		}
		packages = append(packages, filepath.Clean(pkg))
	}

	return packages, nil
}

// DiscoverTargets derives one library target per stack package, seeded for
// later editing in the targets file. The package directory name doubles as
// the package name; "." takes the project directory's name.
func DiscoverTargets(root string) ([]domain.Target, error) {
	packages, err := DiscoverPackages(root)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	targets := make([]domain.Target, 0, len(packages))
	for _, pkg := range packages {
		name := filepath.Base(pkg)
		if pkg == "." {
			name = filepath.Base(absRoot)
		}

		sourceDir := filepath.Join(pkg, "src")
		if pkg == "." {
			sourceDir = "src"
		}

		target := domain.Target{
			ID:          domain.TargetID(name + ":lib"),
			PackageName: name,
			Stanza:      domain.StanzaLibrary,
			SourceDirs:  []string{sourceDir},
		}
		target.NormalizeSourceDirs()
		targets = append(targets, target)
	}

	return targets, nil
}
