// Package discover finds Python source files below an experiment directory.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/provenance/internal/lang"
)

// bytecodeCache marks directories holding compiled bytecode.
const bytecodeCache = "__pycache__"

// Options controls a directory walk.
type Options struct {
	// RespectGitignore drops files matched by the root's .gitignore.
	RespectGitignore bool
}

// Files returns the absolute path of every Python source file under root,
// sorted. Directories whose path contains a bytecode cache are skipped.
func Files(root string, opts Options) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var gi *ignore.GitIgnore
	if opts.RespectGitignore {
		gi = loadGitignore(root)
	}

	var results []string

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		if d.IsDir() {
			if strings.Contains(path, bytecodeCache) {
				return filepath.SkipDir
			}
			return nil
		}

		if lang.ForExtension(filepath.Ext(d.Name())) != lang.Python.Name {
			return nil
		}

		if gi != nil {
			rel, err := filepath.Rel(root, path)
			if err != nil || gi.MatchesPath(filepath.ToSlash(rel)) {
				return nil
			}
		}

		results = append(results, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
