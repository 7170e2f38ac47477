package fetcher

import (
	"context"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"
)

// Snapshot is a local, disposable working copy of a fetched repository
// revision. The path is unique per Fetch call and is never reused.
type Snapshot struct {
	Path     string
	Revision string

	logger zerolog.Logger
}

// Close removes the snapshot's working directory. The coordinator defers it
// on every exit path, success or failure.
func (s *Snapshot) Close() error {
	s.logger.Info().Str("path", s.Path).Msg("Cleaning up repository snapshot")
	return os.RemoveAll(s.Path)
}

// Fetcher obtains local working copies of remote repositories.
type Fetcher struct {
	logger zerolog.Logger
}

// New creates a new fetcher.
func New(logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		logger: logger.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch clones the repository at url into a fresh temporary directory and
// resolves the short revision identifier of the checked-out HEAD.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Snapshot, error) {
	dir, err := os.MkdirTemp("", "auto-deployer-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	f.logger.Info().Str("repo_url", url).Str("path", dir).Msg("Cloning repository")

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL: url,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	revision := head.Hash().String()[:7]

	f.logger.Info().
		Str("repo_url", url).
		Str("revision", revision).
		Msg("Repository cloned")

	return &Snapshot{
		Path:     dir,
		Revision: revision,
		logger:   f.logger,
	}, nil
}
