// Package scan enumerates the modules of a run. Each scanner is a pure
// function of the namespace and registry it is given.
package scan

import (
	"iter"

	"github.com/phobologic/provenance/internal/discover"
	"github.com/phobologic/provenance/internal/model"
	"github.com/phobologic/provenance/internal/modpath"
)

// Registry is the read-only module table scanners consult.
type Registry interface {
	Lookup(name string) (*model.Module, bool)
	Names() []string
	Blacklisted(name string) bool
	Blacklist() []string
}

// Modules yields (dotted name, module) pairs.
type Modules = iter.Seq2[string, *model.Module]

// Process yields every registered module that is not blacklisted, in name
// order.
func Process(reg Registry) Modules {
	return func(yield func(string, *model.Module) bool) {
		for _, name := range reg.Names() {
			if reg.Blacklisted(name) {
				continue
			}
			m, ok := reg.Lookup(name)
			if !ok || m == nil {
				continue
			}
			if !yield(name, m) {
				return
			}
		}
	}
}

// Imported yields the modules reachable from the bindings of ns. For each
// binding the module it names, or the module its object was defined in, is
// expanded into all of its dotted prefixes; every prefix present in the
// registry is yielded once.
func Imported(ns *model.Namespace, reg Registry) Modules {
	return func(yield func(string, *model.Module) bool) {
		if ns == nil {
			return
		}
		checked := make(map[string]struct{})
		for _, name := range reg.Blacklist() {
			checked[name] = struct{}{}
		}

		for _, b := range ns.Bindings {
			if b.Module == "" {
				continue
			}
			for _, name := range modpath.Prefixes(b.Module) {
				if _, ok := checked[name]; ok {
					continue
				}
				checked[name] = struct{}{}
				m, ok := reg.Lookup(name)
				if !ok || m == nil {
					continue
				}
				if !yield(name, m) {
					return
				}
			}
		}
	}
}

// Directory returns every Python source file below base.
func Directory(base string, opts discover.Options) ([]string, error) {
	return discover.Files(base, opts)
}

// None yields nothing.
func None() Modules {
	return func(func(string, *model.Module) bool) {}
}
