package gather

import (
	"path/filepath"
	"strings"

	"github.com/phobologic/provenance/internal/model"
	"github.com/phobologic/provenance/internal/modpath"
	"github.com/phobologic/provenance/internal/scan"
	"github.com/phobologic/provenance/internal/vcs"
)

// SourcesFrom builds a source for every module in mods whose file is local
// to base. Each file is hashed at most once. repos may be nil.
func SourcesFrom(mods scan.Modules, base string, repos *vcs.Cache) (*model.SourceSet, error) {
	sources := model.NewSourceSet()
	for name, m := range mods {
		if !m.HasFile() {
			continue
		}
		filename, err := filepath.Abs(m.File)
		if err != nil {
			continue
		}
		if sources.Has(filename) || !modpath.IsLocalSource(filename, name, base) {
			continue
		}
		s, err := model.NewSourceWith(filename, repos)
		if err != nil {
			return nil, err
		}
		sources.Add(s)
	}
	return sources, nil
}

// DependenciesFrom builds a dependency for every module in mods that is not
// local to base. Submodules are kept only when a version was found for
// them.
func DependenciesFrom(mods scan.Modules, base string) *model.DependencySet {
	deps := model.NewDependencySet()
	for name, m := range mods {
		if isLocal(name, m, base) {
			continue
		}
		d, err := model.NewDependency(m)
		if err != nil {
			continue
		}
		if !strings.Contains(d.Name, ".") || d.Version != "" {
			deps.Add(d)
		}
	}
	return deps
}

func isLocal(name string, m *model.Module, base string) bool {
	if !m.HasFile() {
		return false
	}
	filename, err := filepath.Abs(m.File)
	if err != nil {
		return false
	}
	return modpath.IsLocalSource(filename, name, base)
}
