package registry

import (
	"os"
	"path/filepath"
	"strings"
)

// Location is where a module was found.
type Location struct {
	File string   // "" for namespace packages
	Dirs []string // submodule search locations; empty for plain modules
}

// Resolver finds modules on a search path the way the path-based import
// finder does. It is not safe for concurrent use.
type Resolver struct {
	SearchPath []string

	cache map[string]resolved
}

type resolved struct {
	loc Location
	ok  bool
}

var initFiles = []string{"__init__.py", "__init__.pyc"}

// Resolve returns the location of the dotted module name. Submodules are
// searched for inside their parent package's directories.
func (r *Resolver) Resolve(name string) (Location, bool) {
	if r.cache == nil {
		r.cache = make(map[string]resolved)
	}
	if c, ok := r.cache[name]; ok {
		return c.loc, c.ok
	}

	var loc Location
	var ok bool
	if i := strings.LastIndex(name, "."); i < 0 {
		loc, ok = findIn(r.SearchPath, name)
	} else if parent, pok := r.Resolve(name[:i]); pok && len(parent.Dirs) > 0 {
		loc, ok = findIn(parent.Dirs, name[i+1:])
	}

	r.cache[name] = resolved{loc, ok}
	return loc, ok
}

// findIn searches dirs in order. Within one directory a regular package
// wins over an extension module, which wins over source, which wins over
// bytecode. A directory without an initializer only counts as a namespace
// portion when no directory holds a regular hit.
func findIn(dirs []string, part string) (Location, bool) {
	if part == "" {
		return Location{}, false
	}

	var portions []string
	for _, dir := range dirs {
		pkgDir := filepath.Join(dir, part)
		isPkgDir := isDir(pkgDir)
		if isPkgDir {
			for _, init := range initFiles {
				if f := filepath.Join(pkgDir, init); isFile(f) {
					return Location{File: f, Dirs: []string{pkgDir}}, true
				}
			}
		}
		if f := findExtension(dir, part); f != "" {
			return Location{File: f}, true
		}
		if f := filepath.Join(dir, part+".py"); isFile(f) {
			return Location{File: f}, true
		}
		if f := filepath.Join(dir, part+".pyc"); isFile(f) {
			return Location{File: f}, true
		}
		if isPkgDir {
			portions = append(portions, pkgDir)
		}
	}

	if len(portions) > 0 {
		return Location{Dirs: portions}, true
	}
	return Location{}, false
}

func findExtension(dir, part string) string {
	for _, pattern := range []string{part + ".*.so", part + ".so", part + ".*.pyd", part + ".pyd"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if isFile(m) {
				return m
			}
		}
	}
	return ""
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
