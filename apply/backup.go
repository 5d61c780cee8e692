package apply

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/bazbom/bazbom"
)

// excludedDirs are never copied into a TreeSnapshot, and are skipped by
// hasGoTestFiles when it walks a project root for Go test files.
var excludedDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"target": true, "build": true, "dist": true, ".venv": true, "venv": true,
}

// BackupHandle is the transactional applier's resource: a captured
// pre-mutation snapshot of a project root that can be restored on test
// failure or released on success, per spec §4.10's protocol.
type BackupHandle interface {
	Restore() error
	Cleanup() error
}

// NewBackupHandle chooses a backup strategy for root: GitStash when root
// is inside a git working tree, else TreeSnapshot.
func NewBackupHandle(root string) (BackupHandle, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		h, gitErr := newGitStashHandle(root, repo)
		if gitErr == nil {
			return h, nil
		}
	}
	return newTreeSnapshotHandle(root)
}

// gitStashHandle captures the current HEAD contents of every tracked
// file of the repository containing root and restores them verbatim,
// relative to that repository's worktree root, approximating `git stash`
// without shelling out: go-git's object store already gives byte-exact
// tracked content, so there is no working-tree diff to apply, only a
// content snapshot to write back.
type gitStashHandle struct {
	root     string
	snapshot map[string][]byte
}

func newGitStashHandle(root string, repo *git.Repository) (*gitStashHandle, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.newGitStashHandle", Inner: err}
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.newGitStashHandle", Inner: err}
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.newGitStashHandle", Inner: err}
	}

	snapshot := make(map[string][]byte)
	walkErr := tree.Files().ForEach(func(f *object.File) error {
		content, err := f.Contents()
		if err != nil {
			return err
		}
		snapshot[f.Name] = []byte(content)
		return nil
	})
	if walkErr != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.newGitStashHandle", Inner: walkErr}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.newGitStashHandle", Inner: err}
	}

	return &gitStashHandle{root: wt.Filesystem.Root(), snapshot: snapshot}, nil
}

func (h *gitStashHandle) Restore() error {
	for rel, content := range h.snapshot {
		path := filepath.Join(h.root, rel)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.gitStashHandle.Restore", Inner: err}
		}
	}
	return nil
}

func (h *gitStashHandle) Cleanup() error { return nil }

// treeSnapshotHandle copies every non-excluded file under root into a
// temporary directory and restores them verbatim on demand.
type treeSnapshotHandle struct {
	root    string
	tempDir string
}

func newTreeSnapshotHandle(root string) (*treeSnapshotHandle, error) {
	tempDir, err := os.MkdirTemp("", "bazbom-snapshot-*")
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.newTreeSnapshotHandle", Inner: err}
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			if excludedDirs[info.Name()] {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(tempDir, rel), 0o755)
		}
		return copyFile(path, filepath.Join(tempDir, rel))
	})
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.newTreeSnapshotHandle", Inner: err}
	}

	return &treeSnapshotHandle{root: root, tempDir: tempDir}, nil
}

func (h *treeSnapshotHandle) Restore() error {
	return filepath.Walk(h.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(h.tempDir, path)
		if err != nil || rel == "." {
			return err
		}
		dst := filepath.Join(h.root, rel)
		if info.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		return copyFile(path, dst)
	})
}

func (h *treeSnapshotHandle) Cleanup() error {
	return os.RemoveAll(h.tempDir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
