package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
)

// initTestRepo creates a local git repository with a single commit so clones
// can run without network access.
func initTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('hi')\n"), 0644); err != nil {
		t.Fatal(err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("app.py"); err != nil {
		t.Fatal(err)
	}
	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	return dir
}

func TestFetchResolvesRevision(t *testing.T) {
	src := initTestRepo(t)
	f := New(zerolog.Nop())

	snapshot, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer snapshot.Close()

	if len(snapshot.Revision) != 7 {
		t.Errorf("expected 7-char revision, got %q", snapshot.Revision)
	}

	if _, err := os.Stat(filepath.Join(snapshot.Path, "app.py")); err != nil {
		t.Errorf("expected cloned file to exist: %v", err)
	}
}

func TestSnapshotCloseRemovesDirectory(t *testing.T) {
	src := initTestRepo(t)
	f := New(zerolog.Nop())

	snapshot, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if err := snapshot.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(snapshot.Path); !os.IsNotExist(err) {
		t.Error("expected snapshot directory to be removed")
	}
}

func TestFetchUniquePaths(t *testing.T) {
	src := initTestRepo(t)
	f := New(zerolog.Nop())

	a, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	b, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if a.Path == b.Path {
		t.Error("snapshot paths must be unique per fetch")
	}
}

func TestFetchInvalidURL(t *testing.T) {
	f := New(zerolog.Nop())

	if _, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected clone of a missing repository to fail")
	}
}
