package gitrev

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/osvaldoandrade/provision/internal/domain"
)

// Resolver finds the commit a config file was last committed at. Files
// outside a git work tree resolve to an empty revision.
type Resolver struct{}

func (Resolver) Resolve(ctx context.Context, path string) (domain.Revision, error) {
	if err := ctx.Err(); err != nil {
		return domain.Revision{}, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return domain.Revision{}, fmt.Errorf("resolve config path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(filepath.Dir(absPath), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return domain.Revision{}, nil
		}
		return domain.Revision{}, fmt.Errorf("open git repo: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return domain.Revision{}, nil
		}
		return domain.Revision{}, fmt.Errorf("read HEAD: %w", err)
	}
	revision := domain.Revision{Commit: ref.Hash().String()}

	worktree, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return revision, nil
		}
		return domain.Revision{}, fmt.Errorf("open worktree: %w", err)
	}

	rel, err := filepath.Rel(worktree.Filesystem.Root(), absPath)
	if err != nil {
		return revision, nil
	}
	status, err := worktree.Status()
	if err != nil {
		return domain.Revision{}, fmt.Errorf("read worktree status: %w", err)
	}
	// Status only lists changed or untracked paths.
	if fileStatus, ok := status[filepath.ToSlash(rel)]; ok {
		revision.Dirty = fileStatus.Worktree != git.Unmodified || fileStatus.Staging != git.Unmodified
	}
	return revision, nil
}
