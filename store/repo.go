package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/config"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
)

// TestCaseFileName is the single file every commit in a Repository holds.
const TestCaseFileName = "test_case"

var commitSignature = object.Signature{
	Name:  "preduce",
	Email: "preduce@localhost",
}

// Repository is a versioned store of test cases: a linear-with-merges DAG
// of commits, each holding exactly one file named "test_case", with a
// single mutable HEAD branch. Operations are synchronous and assumed
// single-threaded per instance — parallelism comes from Clone, not from
// sharing one Repository across actors.
type Repository struct {
	dir  string
	repo *git.Repository
	wt   *git.Worktree
}

// NewRepository creates a fresh Repository rooted at a new temp directory
// under parentDir, with an initial commit introducing an empty test case.
func NewRepository(parentDir string) (*Repository, error) {
	dir, err := os.MkdirTemp(parentDir, "preduce-repo-")
	if err != nil {
		return nil, &RepoError{Op: "mkdir", Err: err}
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		os.RemoveAll(dir)
		return nil, &RepoError{Op: "init", Err: err}
	}
	wt, err := repo.Worktree()
	if err != nil {
		os.RemoveAll(dir)
		return nil, &RepoError{Op: "worktree", Err: err}
	}

	r := &Repository{dir: dir, repo: repo, wt: wt}
	if err := os.WriteFile(r.TestCasePath(), nil, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, &RepoError{Op: "init test_case", Err: err}
	}
	if _, err := r.CommitCurrentFile("Initial commit"); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return r, nil
}

// CloneRepository creates a fresh temp-directory clone of an upstream
// local repository, used so each worker gets an isolated copy to commit
// and reset against without racing on upstream's index or HEAD.
func CloneRepository(upstream, parentDir string) (*Repository, error) {
	dir, err := os.MkdirTemp(parentDir, "preduce-repo-")
	if err != nil {
		return nil, &RepoError{Op: "mkdir", Err: err}
	}
	repo, err := git.PlainClone(dir, false, &git.CloneOptions{URL: upstream})
	if err != nil {
		os.RemoveAll(dir)
		return nil, &RepoError{Op: "clone", Err: err}
	}
	wt, err := repo.Worktree()
	if err != nil {
		os.RemoveAll(dir)
		return nil, &RepoError{Op: "worktree", Err: err}
	}
	return &Repository{dir: dir, repo: repo, wt: wt}, nil
}

// Dir is the repository's working directory, used as the "upstream" URL
// argument to CloneRepository and FetchAndResetHard.
func (r *Repository) Dir() string { return r.dir }

// TestCasePath returns the absolute path to this repository's test_case
// file, always within Dir.
func (r *Repository) TestCasePath() string {
	return filepath.Join(r.dir, TestCaseFileName)
}

// HeadID returns the commit id HEAD currently points at.
func (r *Repository) HeadID() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", &RepoError{Op: "head", Err: err}
	}
	return head.Hash().String(), nil
}

// CommitCurrentFile stages and commits the current contents of
// TestCasePath as a child of HEAD, returning the new commit id.
func (r *Repository) CommitCurrentFile(message string) (string, error) {
	if _, err := r.wt.Add(TestCaseFileName); err != nil {
		return "", &RepoError{Op: "add", Err: err}
	}
	hash, err := r.wt.Commit(message, &git.CommitOptions{
		Author:    &commitSignature,
		Committer: &commitSignature,
	})
	if err != nil {
		return "", &RepoError{Op: "commit", Err: err}
	}
	return hash.String(), nil
}

// WriteTestCase replaces the contents of TestCasePath with data, without
// committing. Callers commit separately via CommitCurrentFile.
func (r *Repository) WriteTestCase(data []byte) error {
	if err := os.WriteFile(r.TestCasePath(), data, 0o644); err != nil {
		return &RepoError{Op: "write test_case", Err: err}
	}
	return nil
}

// CopyTestCaseFrom overwrites this repository's test_case with the
// content at srcPath, used by a worker adopting a judged-interesting
// candidate before committing it.
func (r *Repository) CopyTestCaseFrom(srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return &RepoError{Op: "open candidate", Err: err}
	}
	defer src.Close()

	dst, err := os.Create(r.TestCasePath())
	if err != nil {
		return &RepoError{Op: "create test_case", Err: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return &RepoError{Op: "copy test_case", Err: err}
	}
	return nil
}

// ResetHard discards any working-tree changes and moves HEAD to commitID.
func (r *Repository) ResetHard(commitID string) error {
	err := r.wt.Reset(&git.ResetOptions{
		Commit: plumbing.NewHash(commitID),
		Mode:   git.HardReset,
	})
	if err != nil {
		return &RepoError{Op: "reset", Err: err}
	}
	return nil
}

// FetchAndResetHard fetches from the upstream repository path and then
// hard-resets to commitID, the mechanism by which a supervisor broadcasts
// a new smallest to every worker's isolated clone.
func (r *Repository) FetchAndResetHard(upstream, commitID string) error {
	remote, err := r.repo.CreateRemoteAnonymous(&config.RemoteConfig{
		Name: "anonymous",
		URLs: []string{upstream},
	})
	if err != nil {
		return &RepoError{Op: "anonymous remote", Err: err}
	}
	err = remote.Fetch(&git.FetchOptions{RefSpecs: []config.RefSpec{
		"+refs/heads/*:refs/remotes/anonymous/*",
	}})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return &RepoError{Op: "fetch", Err: err}
	}
	return r.ResetHard(commitID)
}

// IsAncestor reports whether ancestor is reachable by walking parents
// from commitID, used by the supervisor to decide whether a stale
// candidate's parent is still on the path to the new smallest.
func (r *Repository) IsAncestor(ancestor, commitID string) (bool, error) {
	if ancestor == commitID {
		return true, nil
	}
	commit, err := r.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return false, &RepoError{Op: "commit lookup", Err: err}
	}
	ancestorHash := plumbing.NewHash(ancestor)
	seen := make(map[plumbing.Hash]bool)
	var walk func(c *object.Commit) (bool, error)
	walk = func(c *object.Commit) (bool, error) {
		if seen[c.Hash] {
			return false, nil
		}
		seen[c.Hash] = true
		if c.Hash == ancestorHash {
			return true, nil
		}
		found := false
		err := c.Parents().ForEach(func(p *object.Commit) error {
			if found {
				return nil
			}
			ok, err := walk(p)
			if err != nil {
				return err
			}
			if ok {
				found = true
			}
			return nil
		})
		return found, err
	}
	return walk(commit)
}

// Close removes the repository's on-disk working directory. Unlike
// TempFile this is not reference-counted: a Repository is owned
// exclusively by one actor (the supervisor or a single worker).
func (r *Repository) Close() error {
	if err := os.RemoveAll(r.dir); err != nil {
		return &RepoError{Op: "close", Err: err}
	}
	return nil
}

// RepoError wraps a failed Repository operation with the operation name,
// surfaced to callers as the reduce package's RepositoryError.
type RepoError struct {
	Op  string
	Err error
}

func (e *RepoError) Error() string {
	return fmt.Sprintf("store: repository %s: %v", e.Op, e.Err)
}

func (e *RepoError) Unwrap() error { return e.Err }
