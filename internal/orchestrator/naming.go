package orchestrator

import "strings"

// servicePrefix is prepended to the repository base name to form the
// deterministic service name shared by deploy and destroy.
const servicePrefix = "auto-deployed-"

// ServiceNameFor derives the service name from a repository URL. The formula
// is deterministic so destroy can recompute it without a fetched snapshot.
func ServiceNameFor(repoURL string) string {
	trimmed := strings.TrimSuffix(repoURL, "/")

	base := trimmed
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		base = trimmed[idx+1:]
	}
	base = strings.TrimSuffix(base, ".git")

	return servicePrefix + base
}
