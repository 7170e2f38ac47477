package terraform

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureWorkspace materializes a per-service terraform working directory under
// stateRoot, copying the fixed template into it on first use. Deploy and
// destroy of the same service share the directory (and its local state);
// distinct services never share mutable state.
func EnsureWorkspace(stateRoot, templateDir, serviceName string) (string, error) {
	workDir := filepath.Join(stateRoot, serviceName)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create terraform workspace: %w", err)
	}

	entries, err := os.ReadDir(templateDir)
	if err != nil {
		return "", fmt.Errorf("failed to read terraform template: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".tf" {
			continue
		}

		dst := filepath.Join(workDir, entry.Name())
		if _, err := os.Stat(dst); err == nil {
			// Template already materialized; leave state and lock files alone.
			continue
		}

		data, err := os.ReadFile(filepath.Join(templateDir, entry.Name()))
		if err != nil {
			return "", fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return "", fmt.Errorf("failed to copy template file %s: %w", entry.Name(), err)
		}
	}

	return workDir, nil
}
