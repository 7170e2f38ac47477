package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const manifestName = "requirements.txt"

// Dependencies every deployable Flask service needs at minimum. gunicorn is
// the production server the generated Dockerfile launches.
var requiredDependencies = []string{"Flask", "gunicorn"}

// ensureManifest guarantees a requirements.txt exists at the snapshot root and
// contains the framework and server packages. Amendment is additive only:
// existing entries are never removed or duplicated.
func (a *Analyzer) ensureManifest(root string) error {
	rootManifest := filepath.Join(root, manifestName)

	found := a.findManifest(root)
	switch {
	case found == "":
		a.logger.Warn().Msg("No requirements.txt found, a new one will be created")
		if err := os.WriteFile(rootManifest, nil, 0644); err != nil {
			return fmt.Errorf("failed to create manifest: %w", err)
		}
	case found != rootManifest:
		rel, _ := filepath.Rel(root, found)
		a.logger.Info().Str("manifest", rel).Msg("Consolidating requirements.txt to the repository root")
		data, err := os.ReadFile(found)
		if err != nil {
			return fmt.Errorf("failed to read manifest: %w", err)
		}
		if err := os.WriteFile(rootManifest, data, 0644); err != nil {
			return fmt.Errorf("failed to consolidate manifest: %w", err)
		}
	}

	return a.amendManifest(rootManifest)
}

// findManifest returns the first requirements.txt discovered in the tree, or
// an empty string when none exists.
func (a *Analyzer) findManifest(root string) string {
	var found string

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == manifestName {
			found = path
			return filepath.SkipAll
		}
		return nil
	})

	return found
}

// amendManifest appends the required dependencies missing from the manifest.
func (a *Analyzer) amendManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	content := strings.ToLower(string(data))

	var missing []string
	for _, dep := range requiredDependencies {
		if !strings.Contains(content, strings.ToLower(dep)) {
			missing = append(missing, dep)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	a.logger.Info().Strs("dependencies", missing).Msg("Injecting missing core dependencies")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(missing, "\n"))
	sb.WriteString("\n")

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to amend manifest: %w", err)
	}

	return nil
}
