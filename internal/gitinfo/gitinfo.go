// Package gitinfo reads repository metadata used to annotate chunk
// payloads. Lookups are best effort: a tree that is not a git repository
// simply yields no annotation.
package gitinfo

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// CurrentCommitSHA returns the HEAD commit of the repository rooted at
// path. Non-repositories, bare repos, and unborn branches all return an
// empty string rather than an error.
func CurrentCommitSHA(path string) string {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if head.Hash() == plumbing.ZeroHash {
		return ""
	}
	return head.Hash().String()
}

// CurrentBranch returns the checked-out branch name, or empty for a
// detached HEAD or a non-repository.
func CurrentBranch(path string) string {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	return ""
}
