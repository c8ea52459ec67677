// Package registry holds the module table of a Python run: the modules the
// run loaded, keyed by dotted name, plus the names that are never reported.
//
// A registry is built once, either by statically following the imports of
// an entry script (Loader) or by decoding a manifest written by the running
// interpreter (LoadManifest), and is read-only afterwards.
package registry

import (
	"sort"

	"github.com/phobologic/provenance/internal/model"
)

// baseBlacklist holds meta-modules and modules the collector itself relies on.
var baseBlacklist = []string{"__future__", "__main__", "hashlib", "os", "re"}

// Registry maps dotted module names to modules.
type Registry struct {
	modules   map[string]*model.Module
	blacklist map[string]struct{}
}

// New returns an empty registry whose blacklist holds the meta-modules and
// the given interpreter builtin module names.
func New(builtins []string) *Registry {
	r := &Registry{
		modules:   make(map[string]*model.Module),
		blacklist: make(map[string]struct{}, len(baseBlacklist)+len(builtins)),
	}
	for _, name := range baseBlacklist {
		r.blacklist[name] = struct{}{}
	}
	for _, name := range builtins {
		r.blacklist[name] = struct{}{}
	}
	return r
}

// Add registers m, replacing any module of the same name.
func (r *Registry) Add(m *model.Module) {
	r.modules[m.Name] = m
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (*model.Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Blacklisted reports whether name is never reported.
func (r *Registry) Blacklisted(name string) bool {
	_, ok := r.blacklist[name]
	return ok
}

// Blacklist returns the blacklisted names in sorted order.
func (r *Registry) Blacklist() []string {
	return sortedKeys(r.blacklist)
}

// Names returns the registered module names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.modules)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
