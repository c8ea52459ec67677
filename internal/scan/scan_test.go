package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/provenance/internal/discover"
	"github.com/phobologic/provenance/internal/model"
	"github.com/phobologic/provenance/internal/registry"
)

func newRegistry(names ...string) *registry.Registry {
	reg := registry.New([]string{"sys"})
	for _, n := range names {
		reg.Add(&model.Module{Name: n, File: "/site/" + n + ".py"})
	}
	return reg
}

func collect(mods Modules) []string {
	var out []string
	for name, m := range mods {
		if m.Name != name {
			panic("name mismatch")
		}
		out = append(out, name)
	}
	return out
}

func TestProcess(t *testing.T) {
	t.Parallel()
	reg := newRegistry("widgets", "sys", "os", "a.b", "a")

	assert.Equal(t, []string{"a", "a.b", "widgets"}, collect(Process(reg)))
}

func TestImported(t *testing.T) {
	t.Parallel()
	reg := newRegistry("a", "a.b", "a.b.c", "widgets", "widgets.core", "os", "lonely")
	ns := &model.Namespace{Bindings: []model.Binding{
		{Name: "c", Module: "a.b.c"},
		{Name: "Gadget", Module: "widgets.core"},
		{Name: "w", Module: "widgets"},
		{Name: "path", Module: "os.path"},
		{Name: "ghost", Module: "ghost.pkg"},
		{Name: "main", Module: "__main__"},
		{Name: "x"},
	}}

	assert.Equal(t, []string{"a", "a.b", "a.b.c", "widgets", "widgets.core"}, collect(Imported(ns, reg)))
}

func TestImportedStopsEarly(t *testing.T) {
	t.Parallel()
	reg := newRegistry("a", "b")
	ns := &model.Namespace{Bindings: []model.Binding{
		{Name: "a", Module: "a"},
		{Name: "b", Module: "b"},
	}}

	var seen []string
	for name := range Imported(ns, reg) {
		seen = append(seen, name)
		break
	}
	assert.Equal(t, []string{"a"}, seen)
}

func TestImportedNilNamespace(t *testing.T) {
	t.Parallel()
	assert.Empty(t, collect(Imported(nil, newRegistry("a"))))
}

func TestNone(t *testing.T) {
	t.Parallel()
	assert.Empty(t, collect(None()))
}

func TestDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.py"), []byte("x = 5\n"), 0o644))

	files, err := Directory(dir, discover.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "run.py")}, files)
}
