package analyzer

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// localhostURL matches absolute development URLs that break once the app is
// served from a real host.
var localhostURL = regexp.MustCompile(`https?://(localhost|127\.0\.0\.1)(:\d+)?`)

var patchableExtensions = map[string]bool{
	".js":   true,
	".html": true,
	".htm":  true,
}

// patchLocalhostURLs rewrites hardcoded localhost URLs in frontend files to
// relative paths so the deployed service stays portable. Failures here are
// logged and skipped, never fatal.
func (a *Analyzer) patchLocalhostURLs(root string) {
	a.logger.Info().Msg("Scanning for hardcoded localhost URLs to patch")

	patched := 0

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
		if !patchableExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			a.logger.Warn().Err(err).Str("file", path).Msg("Could not read file for URL patching")
			return nil
		}

		replaced := localhostURL.ReplaceAll(data, nil)
		if bytes.Equal(replaced, data) {
			return nil
		}

		if err := os.WriteFile(path, replaced, 0644); err != nil {
			a.logger.Warn().Err(err).Str("file", path).Msg("Could not patch file")
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		a.logger.Info().Str("file", rel).Msg("Patched hardcoded URL(s)")
		patched++
		return nil
	})

	if patched > 0 {
		a.logger.Info().Int("files", patched).Msg("URL patching complete")
	} else {
		a.logger.Info().Msg("No hardcoded localhost URLs found to patch")
	}
}
