// Package hostclient implements the git-hosting side of the core: reading a
// file as it existed at a tag, moving/reading tags, and staging+pushing the
// branch a migration run opens a pull request from.
//
// Grounded on internal/gitctx's use of go-git/go-git/v5 (PlainOpenWithOptions,
// repo.Head, Worktree, Status) for repository introspection, and on
// go-billy/v5's in-memory filesystem for building the migration branch's
// tree without touching the caller's working copy.
package hostclient

import (
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	gitstorer "github.com/go-git/go-git/v5/storage/memory"

	"github.com/canonical/discourse-gatekeeper/internal/errors"
	"github.com/canonical/discourse-gatekeeper/internal/model"
)

// Client is the git-hosting surface the orchestrator and migration planner
// need: tag-scoped file retrieval, tag management, and branch staging.
type Client struct {
	repo *git.Repository
	path string
}

// Open opens the repository rooted at path.
func Open(path string) (*Client, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.WrapRepositoryClient("failed to open repository at "+path, err)
	}
	return &Client{repo: repo, path: path}, nil
}

// CurrentBranch returns the short name of the currently checked-out branch.
func (c *Client) CurrentBranch() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", errors.WrapRepositoryClient("failed to resolve HEAD", err)
	}
	return head.Name().Short(), nil
}

// CurrentCommit returns the hex SHA of the currently checked-out commit.
func (c *Client) CurrentCommit() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", errors.WrapRepositoryClient("failed to resolve HEAD", err)
	}
	return head.Hash().String(), nil
}

// TagExists reports whether tagName exists in the repository.
func (c *Client) TagExists(tagName string) (bool, error) {
	_, err := c.repo.Tag(tagName)
	if err == nil {
		return true, nil
	}
	if err == git.ErrTagNotFound {
		return false, nil
	}
	return false, errors.WrapRepositoryClient("failed to look up tag "+tagName, err)
}

// MoveTag force-creates tagName at the given commit SHA, replacing any
// existing tag with the same name. Callers must have already checked
// IsOnBaseBranch per the TaggingNotAllowedError contract.
func (c *Client) MoveTag(tagName, commitSHA string) error {
	if _, err := c.repo.Tag(tagName); err == nil {
		if err := c.repo.DeleteTag(tagName); err != nil {
			return errors.WrapRepositoryClient("failed to delete existing tag "+tagName, err)
		}
	}
	_, err := c.repo.CreateTag(tagName, plumbing.NewHash(commitSHA), nil)
	if err != nil {
		return errors.WrapRepositoryClient("failed to create tag "+tagName, err)
	}
	return nil
}

// IsOnBaseBranch reports whether the current branch matches baseBranch,
// used to gate tag moves per TaggingNotAllowedError.
func (c *Client) IsOnBaseBranch(baseBranch string) (bool, error) {
	branch, err := c.CurrentBranch()
	if err != nil {
		return false, err
	}
	return branch == baseBranch, nil
}

// GetFileContentFromTag reads path as it existed in the commit a tag points
// to. Returns *errors.RepositoryTagNotFoundError or
// *errors.RepositoryFileNotFoundError on the respective failure.
func (c *Client) GetFileContentFromTag(path, tagName string) (string, error) {
	tagRef, err := c.repo.Tag(tagName)
	if err != nil {
		return "", &errors.RepositoryTagNotFoundError{Tag: tagName}
	}

	commit, err := c.repo.CommitObject(resolveTagCommit(c.repo, tagRef.Hash()))
	if err != nil {
		return "", errors.WrapRepositoryClient("failed to resolve tag commit for "+tagName, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return "", errors.WrapRepositoryClient("failed to read tree for tag "+tagName, err)
	}

	file, err := tree.File(path)
	if err != nil {
		return "", &errors.RepositoryFileNotFoundError{Path: path, Tag: tagName}
	}

	reader, err := file.Reader()
	if err != nil {
		return "", errors.WrapRepositoryClient("failed to open "+path+" at tag "+tagName, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", errors.WrapRepositoryClient("failed to read "+path+" at tag "+tagName, err)
	}
	return string(content), nil
}

func resolveTagCommit(repo *git.Repository, hash plumbing.Hash) plumbing.Hash {
	tagObj, err := repo.TagObject(hash)
	if err != nil {
		return hash // lightweight tag already points at the commit
	}
	return tagObj.Target
}

// DiffSummary lists the names of the files changed between two commits,
// each given by its hex SHA.
func (c *Client) DiffSummary(fromRef, toRef string) (model.DiffSummary, error) {
	fromCommit, err := c.repo.CommitObject(plumbing.NewHash(fromRef))
	if err != nil {
		return model.DiffSummary{}, errors.WrapRepositoryClient("failed to resolve ref "+fromRef, err)
	}
	toCommit, err := c.repo.CommitObject(plumbing.NewHash(toRef))
	if err != nil {
		return model.DiffSummary{}, errors.WrapRepositoryClient("failed to resolve ref "+toRef, err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return model.DiffSummary{}, errors.WrapRepositoryClient("failed to read tree", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return model.DiffSummary{}, errors.WrapRepositoryClient("failed to read tree", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return model.DiffSummary{}, errors.WrapRepositoryClient("failed to diff trees", err)
	}

	summary := model.DiffSummary{}
	for _, change := range changes {
		summary.ChangedFiles = append(summary.ChangedFiles, change.To.Name)
	}
	return summary, nil
}

// StagedTree is an in-memory git tree (go-billy memfs) used to build a
// migration branch without touching the working tree.
type StagedTree struct {
	fs     billy.Filesystem
	storer *gitstorer.Storage
	files  map[string]struct{}
}

// NewStagedTree creates an empty in-memory staging area.
func NewStagedTree() *StagedTree {
	return &StagedTree{fs: memfs.New(), storer: gitstorer.NewStorage(), files: map[string]struct{}{}}
}

// WriteFile stages a file's content at relPath.
func (s *StagedTree) WriteFile(relPath string, content []byte) error {
	f, err := s.fs.Create(relPath)
	if err != nil {
		return errors.WrapRepositoryClient("failed to stage "+relPath, err)
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return errors.WrapRepositoryClient("failed to write "+relPath, err)
	}
	s.files[relPath] = struct{}{}
	return nil
}

// Files returns the relative paths staged so far.
func (s *StagedTree) Files() []string {
	out := make([]string, 0, len(s.files))
	for f := range s.files {
		out = append(out, f)
	}
	return out
}

// CommitBranch clones basePath's default branch into a fresh in-memory
// repository, applies the staged tree on top, commits, and pushes the
// result as branchName to the remote origin of the on-disk repository.
func (c *Client) CommitBranch(staged *StagedTree, branchName, defaultBranch, message string, author object.Signature) error {
	clone, err := git.Clone(gitstorer.NewStorage(), nil, &git.CloneOptions{
		URL:           c.path,
		ReferenceName: plumbing.NewBranchReferenceName(defaultBranch),
	})
	if err != nil {
		return errors.WrapRepositoryClient("failed to clone base branch for migration", err)
	}

	wt, err := clone.Worktree()
	if err != nil {
		return errors.WrapRepositoryClient("failed to open clone worktree", err)
	}

	for path := range staged.files {
		f, openErr := staged.fs.Open(path)
		if openErr != nil {
			return errors.WrapRepositoryClient("failed to read staged file "+path, openErr)
		}
		content, readErr := io.ReadAll(f)
		f.Close()
		if readErr != nil {
			return errors.WrapRepositoryClient("failed to read staged file "+path, readErr)
		}
		dst, createErr := wt.Filesystem.Create(path)
		if createErr != nil {
			return errors.WrapRepositoryClient("failed to create "+path+" in clone", createErr)
		}
		if _, err := dst.Write(content); err != nil {
			dst.Close()
			return errors.WrapRepositoryClient("failed to write "+path+" in clone", err)
		}
		dst.Close()
		if _, err := wt.Add(path); err != nil {
			return errors.WrapRepositoryClient("failed to stage "+path, err)
		}
	}

	commitHash, err := wt.Commit(message, &git.CommitOptions{
		Author: &author,
	})
	if err != nil {
		return errors.WrapRepositoryClient("failed to commit migration branch", err)
	}

	branchRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branchName), commitHash)
	if err := clone.Storer.SetReference(branchRef); err != nil {
		return errors.WrapRepositoryClient("failed to create branch ref", err)
	}

	err = clone.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs: []config.RefSpec{
			config.RefSpec(fmt.Sprintf("%s:refs/heads/%s", branchRef.Name(), branchName)),
		},
	})
	if err != nil {
		return errors.WrapRepositoryClient("failed to push migration branch "+branchName, err)
	}
	return nil
}
