package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/phobologic/provenance/internal/digest"
	"github.com/phobologic/provenance/internal/vcs"
)

// ErrInvalidSource is returned when a source file is empty or missing.
var ErrInvalidSource = errors.New("invalid filename or file not found")

// Source identifies one local file that contributed to a run.
// Two sources are the same source when their filenames are equal.
type Source struct {
	Filename string
	Digest   string
	Repo     string
	Commit   string
	Dirty    *bool
}

// NewSource hashes filename and probes its version-control state.
// Compiled .pyc paths resolve to their .py sibling when one exists.
func NewSource(filename string) (Source, error) {
	return NewSourceWith(filename, nil)
}

// NewSourceWith is NewSource probing through repos, which may be nil.
func NewSourceWith(filename string, repos *vcs.Cache) (Source, error) {
	if filename == "" {
		return Source{}, fmt.Errorf("%w: %q", ErrInvalidSource, filename)
	}
	if _, err := os.Stat(filename); err != nil {
		return Source{}, fmt.Errorf("%w: %q", ErrInvalidSource, filename)
	}

	abs, err := filepath.Abs(filename)
	if err != nil {
		return Source{}, fmt.Errorf("resolving %s: %w", filename, err)
	}
	path := digest.ResolveSourceFile(abs)

	sum, err := digest.File(path)
	if err != nil {
		return Source{}, err
	}

	s := Source{Filename: path, Digest: sum}
	var info vcs.Info
	if repos != nil {
		info = repos.Probe(path)
	} else {
		info = vcs.Probe(path)
	}
	if info.Found() {
		dirty := info.Dirty
		s.Repo = info.Origin
		s.Commit = info.Commit
		s.Dirty = &dirty
	}
	return s, nil
}

// Serialize returns the path and digest pair recorded for the source.
// The path is made relative to baseDir when baseDir is non-empty.
func (s Source) Serialize(baseDir string) (string, string) {
	if baseDir == "" {
		return s.Filename, s.Digest
	}
	rel, err := filepath.Rel(baseDir, s.Filename)
	if err != nil {
		return s.Filename, s.Digest
	}
	return rel, s.Digest
}

func (s Source) String() string {
	return "<Source: " + s.Filename + ">"
}

// SourceSet is a set of sources keyed by filename.
type SourceSet struct {
	items map[string]Source
}

// NewSourceSet returns an empty set.
func NewSourceSet() *SourceSet {
	return &SourceSet{items: make(map[string]Source)}
}

// Add inserts s unless a source with the same filename is present.
// It reports whether s was added.
func (ss *SourceSet) Add(s Source) bool {
	if _, ok := ss.items[s.Filename]; ok {
		return false
	}
	ss.items[s.Filename] = s
	return true
}

// Has reports whether the set holds a source for filename.
func (ss *SourceSet) Has(filename string) bool {
	_, ok := ss.items[filename]
	return ok
}

// Get returns the source stored for filename.
func (ss *SourceSet) Get(filename string) (Source, bool) {
	s, ok := ss.items[filename]
	return s, ok
}

// Len returns the number of sources.
func (ss *SourceSet) Len() int {
	return len(ss.items)
}

// Sorted returns the sources ordered by filename.
func (ss *SourceSet) Sorted() []Source {
	out := make([]Source, 0, len(ss.items))
	for _, s := range ss.items {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Filename < out[j].Filename
	})
	return out
}
