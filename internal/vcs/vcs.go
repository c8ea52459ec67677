// Package vcs reads the version-control state of the working copy that
// contains a file.
package vcs

import (
	"log/slog"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// Info is the version-control state of a file. The zero Info means no
// working copy was found.
type Info struct {
	Origin string
	Commit string
	Dirty  bool
}

// Found reports whether a working copy was located.
func (i Info) Found() bool {
	return i.Origin != ""
}

// Probe locates the git working copy containing path by searching parent
// directories. Origin is the URL of the "origin" remote, or "git:/" followed
// by the working-copy root when there is none. Untracked files do not make
// the working copy dirty.
func Probe(path string) Info {
	return NewCache().Probe(path)
}

// Cache memoizes Probe per working copy, so the status of a repository is
// computed once however many of its files are probed. The zero Cache is
// not usable; it is not safe for concurrent use.
type Cache struct {
	byDir  map[string]string // directory -> working-copy root, "" for none
	byRoot map[string]Info
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		byDir:  make(map[string]string),
		byRoot: make(map[string]Info),
	}
}

// Probe behaves like the package-level Probe, reusing earlier results for
// the same directory or working copy.
func (c *Cache) Probe(path string) Info {
	dir := filepath.Dir(path)
	if root, ok := c.byDir[dir]; ok {
		return c.byRoot[root]
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		c.byDir[dir] = ""
		return Info{}
	}
	wt, err := repo.Worktree()
	if err != nil {
		slog.Debug("git worktree unavailable", "path", path, "error", err)
		c.byDir[dir] = ""
		return Info{}
	}

	root := wt.Filesystem.Root()
	c.byDir[dir] = root
	if info, ok := c.byRoot[root]; ok {
		return info
	}
	info := inspect(repo, wt, root)
	c.byRoot[root] = info
	return info
}

func inspect(repo *git.Repository, wt *git.Worktree, root string) Info {
	var info Info
	if remote, err := repo.Remote(git.DefaultRemoteName); err == nil && len(remote.Config().URLs) > 0 {
		info.Origin = remote.Config().URLs[0]
	} else {
		info.Origin = "git:/" + root
	}

	if head, err := repo.Head(); err == nil {
		info.Commit = head.Hash().String()
	} else {
		slog.Debug("git head unavailable", "root", root, "error", err)
	}

	status, err := wt.Status()
	if err != nil {
		slog.Debug("git status failed", "root", root, "error", err)
		return info
	}
	for _, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified {
			info.Dirty = true
			break
		}
	}
	return info
}
