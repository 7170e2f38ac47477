package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Directories that never contain application entrypoints.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
}

// Analyzer inspects a repository snapshot and identifies its framework.
type Analyzer struct {
	logger zerolog.Logger
}

// New creates a new analyzer.
func New(logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.With().Str("component", "analyzer").Logger(),
	}
}

// Detect scans the snapshot's file tree for a framework marker. When several
// candidate files carry a marker, the first one found in the walk wins; the
// order is unspecified and callers must not depend on it. On a match the
// dependency manifest is consolidated and amended, the entrypoint is derived
// from the matched file's module path, and hardcoded localhost URLs in
// frontend files are patched.
func (a *Analyzer) Detect(path string) (*FrameworkDescriptor, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("path does not exist: %s", path)
	}

	a.logger.Info().Str("path", path).Msg("Starting source code analysis")

	var descriptor *FrameworkDescriptor

	err := filepath.WalkDir(path, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		for _, m := range frameworkMarkers {
			if ext != m.Extension {
				continue
			}

			data, readErr := os.ReadFile(filePath)
			if readErr != nil {
				a.logger.Warn().Err(readErr).Str("file", filePath).Msg("Could not read file during analysis")
				continue
			}

			if strings.Contains(string(data), m.Pattern) {
				a.logger.Info().
					Str("file", d.Name()).
					Str("framework", string(m.Framework)).
					Msg("Framework marker found")

				descriptor = &FrameworkDescriptor{
					Framework:  m.Framework,
					Language:   m.Language,
					Entrypoint: entrypointFor(path, filePath),
				}
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if descriptor == nil {
		return nil, ErrUnsupportedFramework
	}

	if err := a.ensureManifest(path); err != nil {
		return nil, err
	}

	a.patchLocalhostURLs(path)

	a.logger.Info().
		Str("framework", string(descriptor.Framework)).
		Str("entrypoint", descriptor.Entrypoint).
		Msg("Analysis complete")

	return descriptor, nil
}

// entrypointFor derives a WSGI entrypoint reference from the matched file's
// module path relative to the snapshot root, e.g. api/app.py -> api.app:app.
func entrypointFor(root, matched string) string {
	rel, err := filepath.Rel(root, matched)
	if err != nil {
		rel = filepath.Base(matched)
	}

	module := strings.TrimSuffix(rel, filepath.Ext(rel))
	module = strings.ReplaceAll(module, string(os.PathSeparator), ".")

	return module + ":app"
}
