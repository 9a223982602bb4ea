package gitrev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add(name)
	require.NoError(t, err)
	hash, err := worktree.Commit("add config", &git.CommitOptions{
		Author: &object.Signature{Name: "ops", Email: "ops@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestResolveOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collections.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	revision, err := (Resolver{}).Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, revision.Commit)
}

func TestResolveCleanFile(t *testing.T) {
	dir := t.TempDir()
	hash := commitConfig(t, dir, "collections.json", `[]`)

	revision, err := (Resolver{}).Resolve(context.Background(), filepath.Join(dir, "collections.json"))
	require.NoError(t, err)
	assert.Equal(t, hash, revision.Commit)
	assert.False(t, revision.Dirty)
}

func TestResolveDirtyFile(t *testing.T) {
	dir := t.TempDir()
	commitConfig(t, dir, "collections.json", `[]`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "collections.json"), []byte(`[{"name":"REVIEWS"}]`), 0o644))

	revision, err := (Resolver{}).Resolve(context.Background(), filepath.Join(dir, "collections.json"))
	require.NoError(t, err)
	assert.True(t, revision.Dirty)
	assert.Contains(t, revision.String(), "+dirty")
}
