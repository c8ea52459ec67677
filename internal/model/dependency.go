package model

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// ErrUnnamedModule is returned when a dependency is built from a module
// that has no name.
var ErrUnnamedModule = errors.New("module has no name")

// releaseVersion accepts epoch!release[{a|b|c|rc}N][.postN][.devN].
var releaseVersion = regexp.MustCompile(`^(\d+!)?(\d(?:[.\d]*\d)?)((?:[abc]|rc)\d+)?(\.post\d+)?(\.dev\d+)?$`)

// versionProbe pairs a module attribute with a parser for its value.
type versionProbe struct {
	attr  string
	parse func(Value) (string, bool)
}

var versionProbes = []versionProbe{
	{"__version__", stringVersion},
	{"__version__", tupleVersion},
	{"VERSION", stringVersion},
	{"VERSION", tupleVersion},
	{"version", stringVersion},
	{"version", tupleVersion},
}

func stringVersion(v Value) (string, bool) {
	if v.Kind != StringValue {
		return "", false
	}
	return v.Text, true
}

func tupleVersion(v Value) (string, bool) {
	if v.Kind != TupleValue {
		return "", false
	}
	return strings.Join(v.Items, "."), true
}

// IsReleaseVersion reports whether v matches the release version grammar.
func IsReleaseVersion(v string) bool {
	return releaseVersion.MatchString(v)
}

// VersionHeuristic returns the first well-formed version found among the
// conventional version attributes of m, or "" if there is none.
func VersionHeuristic(m *Module) string {
	for _, p := range versionProbes {
		val, ok := m.Attr(p.attr)
		if !ok {
			continue
		}
		if v, ok := p.parse(val); ok && IsReleaseVersion(v) {
			return v
		}
	}
	return ""
}

// PackageDependency identifies one external package.
// Two dependencies are the same dependency when their names are equal.
type PackageDependency struct {
	Name    string
	Version string
}

// NewDependency builds a dependency from a registry module, guessing its
// version from the module's attributes.
func NewDependency(m *Module) (PackageDependency, error) {
	if m == nil || m.Name == "" {
		return PackageDependency{}, ErrUnnamedModule
	}
	return PackageDependency{Name: m.Name, Version: VersionHeuristic(m)}, nil
}

// VersionLookup resolves the installed version of a distribution by name.
type VersionLookup interface {
	Version(name string) (string, bool)
}

// FillMissingVersion sets Version from installed when it is empty.
// Dependencies that cannot be resolved get UnknownVersion.
func (d *PackageDependency) FillMissingVersion(installed VersionLookup) {
	if d.Version != "" {
		return
	}
	if installed != nil {
		if v, ok := installed.Version(d.Name); ok {
			d.Version = v
			return
		}
	}
	d.Version = UnknownVersion
}

// Serialize returns the name==version form of the dependency.
func (d PackageDependency) Serialize() string {
	v := d.Version
	if v == "" {
		v = UnknownVersion
	}
	return d.Name + "==" + v
}

func (d PackageDependency) String() string {
	return "<PackageDependency: " + d.Name + "=" + d.Version + ">"
}

// DependencySet is a set of dependencies keyed by name.
type DependencySet struct {
	items map[string]PackageDependency
}

// NewDependencySet returns an empty set.
func NewDependencySet() *DependencySet {
	return &DependencySet{items: make(map[string]PackageDependency)}
}

// Add inserts d unless a dependency with the same name is present.
// It reports whether d was added.
func (ds *DependencySet) Add(d PackageDependency) bool {
	if _, ok := ds.items[d.Name]; ok {
		return false
	}
	ds.items[d.Name] = d
	return true
}

// Get returns the dependency stored under name.
func (ds *DependencySet) Get(name string) (PackageDependency, bool) {
	d, ok := ds.items[name]
	return d, ok
}

// Len returns the number of dependencies.
func (ds *DependencySet) Len() int {
	return len(ds.items)
}

// FillMissingVersions fills the version of every dependency that lacks one.
func (ds *DependencySet) FillMissingVersions(installed VersionLookup) {
	for name, d := range ds.items {
		d.FillMissingVersion(installed)
		ds.items[name] = d
	}
}

// Sorted returns the dependencies ordered by name.
func (ds *DependencySet) Sorted() []PackageDependency {
	out := make([]PackageDependency, 0, len(ds.items))
	for _, d := range ds.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
