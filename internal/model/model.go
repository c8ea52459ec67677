// Package model defines core data structures for provenance.
package model

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// UnknownVersion is recorded for dependencies whose version could not be found.
const UnknownVersion = "<unknown>"

// ValueKind classifies a module-level attribute value.
type ValueKind string

const (
	OtherValue  ValueKind = "other"
	StringValue ValueKind = "string"
	TupleValue  ValueKind = "tuple"
)

// Value is a literal bound to a module-level name.
// Text holds the string contents for StringValue; Items holds the
// stringified elements for TupleValue.
type Value struct {
	Kind  ValueKind
	Text  string
	Items []string
}

// String returns a string value.
func String(s string) Value {
	return Value{Kind: StringValue, Text: s}
}

// Tuple returns a tuple value.
func Tuple(items ...string) Value {
	return Value{Kind: TupleValue, Items: items}
}

// Module is one entry of a module registry.
type Module struct {
	Name  string
	File  string // "" for builtins and namespace packages
	Attrs map[string]Value
}

// HasFile reports whether the module was loaded from a file.
func (m *Module) HasFile() bool {
	return m.File != ""
}

// Attr returns the named module-level attribute.
func (m *Module) Attr(name string) (Value, bool) {
	v, ok := m.Attrs[name]
	return v, ok
}

// Binding is a single name bound in a namespace. Module is the bound
// module itself or, for any other object, the module it was defined in.
type Binding struct {
	Name   string
	Module string
}

// Namespace is the set of names bound at the top level of the main script.
type Namespace struct {
	File     string
	Bindings []Binding
}

// Repository describes the version-control state shared by some sources.
type Repository struct {
	URL    string `json:"url" yaml:"url"`
	Commit string `json:"commit" yaml:"commit"`
	Dirty  bool   `json:"dirty" yaml:"dirty"`
}

// Record is the provenance record of one run.
type Record struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	BaseDir      string
	Main         *Source
	Sources      []Source
	Dependencies []PackageDependency
	Repositories []Repository
}

// NewRecord assembles a record from gathered sources and dependencies.
func NewRecord(baseDir string, main *Source, sources *SourceSet, deps *DependencySet) *Record {
	r := &Record{
		ID:           uuid.New(),
		CreatedAt:    time.Now().UTC(),
		BaseDir:      filepath.Clean(baseDir),
		Main:         main,
		Sources:      sources.Sorted(),
		Dependencies: deps.Sorted(),
	}

	seen := make(map[Repository]struct{})
	for _, s := range r.Sources {
		if s.Repo == "" {
			continue
		}
		repo := Repository{URL: s.Repo, Commit: s.Commit}
		if s.Dirty != nil {
			repo.Dirty = *s.Dirty
		}
		if _, ok := seen[repo]; ok {
			continue
		}
		seen[repo] = struct{}{}
		r.Repositories = append(r.Repositories, repo)
	}
	return r
}
