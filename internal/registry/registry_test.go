package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/provenance/internal/model"
	"github.com/phobologic/provenance/internal/parse"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// createExperiment lays out an experiment directory and a site-packages
// directory and returns (script, site).
func createExperiment(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	exp := filepath.Join(root, "exp")
	site := filepath.Join(root, "site")

	script := writeFile(t, exp, "run.py", `import widgets
import os.path
from helpers import util
from pkg.sub import thing
import missing_mod
import widgets.core as wc

x = 5

def main():
    pass
`)
	writeFile(t, exp, "helpers/__init__.py", "")
	writeFile(t, exp, "helpers/util.py", "from . import shared\n")
	writeFile(t, exp, "helpers/shared.py", "")
	writeFile(t, exp, "pkg/sub.py", "thing = 1\n")

	writeFile(t, site, "widgets/__init__.py", `__version__ = "2.0"
from .core import Gadget
`)
	writeFile(t, site, "widgets/core.py", "from ..outside import nope\nclass Gadget: pass\n")
	return script, site
}

func TestResolver(t *testing.T) {
	t.Parallel()
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, a, "regular/__init__.py", "")
	writeFile(t, a, "regular/mod.py", "")
	writeFile(t, a, "ns/part.py", "")
	writeFile(t, b, "ns/other.py", "")
	writeFile(t, a, "plain.py", "")
	writeFile(t, a, "compiled.pyc", "")
	writeFile(t, a, "fast.cpython-312-x86_64-linux-gnu.so", "")
	writeFile(t, a, "fast.py", "")
	writeFile(t, b, "plain.py", "")

	r := &Resolver{SearchPath: []string{a, b}}

	loc, ok := r.Resolve("regular")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(a, "regular", "__init__.py"), loc.File)
	assert.Equal(t, []string{filepath.Join(a, "regular")}, loc.Dirs)

	loc, ok = r.Resolve("regular.mod")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(a, "regular", "mod.py"), loc.File)

	loc, ok = r.Resolve("plain")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(a, "plain.py"), loc.File, "first search path entry wins")

	loc, ok = r.Resolve("compiled")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(a, "compiled.pyc"), loc.File)

	loc, ok = r.Resolve("fast")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(a, "fast.cpython-312-x86_64-linux-gnu.so"), loc.File)

	loc, ok = r.Resolve("ns")
	require.True(t, ok)
	assert.Empty(t, loc.File)
	assert.Equal(t, []string{filepath.Join(a, "ns"), filepath.Join(b, "ns")}, loc.Dirs)

	loc, ok = r.Resolve("ns.other")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(b, "ns", "other.py"), loc.File)

	_, ok = r.Resolve("plain.child")
	assert.False(t, ok, "plain modules have no submodules")
	_, ok = r.Resolve("absent")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	script, site := createExperiment(t)
	exp := filepath.Dir(script)

	l := NewLoader(exp, []string{site}, DefaultBuiltins)
	reg, ns, err := l.Load(context.Background(), script)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"helpers", "helpers.shared", "helpers.util",
		"pkg", "pkg.sub",
		"widgets", "widgets.core",
	}, reg.Names())

	w, ok := reg.Lookup("widgets")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(site, "widgets", "__init__.py"), w.File)
	assert.Equal(t, model.String("2.0"), w.Attrs["__version__"])

	p, ok := reg.Lookup("pkg")
	require.True(t, ok)
	assert.False(t, p.HasFile(), "namespace packages have no file")

	assert.Equal(t, script, ns.File)
	assert.Equal(t, []model.Binding{
		{Name: "widgets", Module: "widgets"},
		{Name: "util", Module: "helpers.util"},
		{Name: "thing", Module: "pkg.sub"},
		{Name: "wc", Module: "widgets.core"},
		{Name: "main", Module: MainModule},
	}, ns.Bindings)
}

func TestLoadIsDeterministic(t *testing.T) {
	t.Parallel()
	script, site := createExperiment(t)
	exp := filepath.Dir(script)

	var first []string
	for i := range 5 {
		l := NewLoader(exp, []string{site}, DefaultBuiltins)
		l.Workers = i + 1
		reg, _, err := l.Load(context.Background(), script)
		require.NoError(t, err)
		if first == nil {
			first = reg.Names()
			continue
		}
		assert.Equal(t, first, reg.Names())
	}
}

func TestLoadMissingScript(t *testing.T) {
	t.Parallel()
	l := NewLoader(t.TempDir(), nil, nil)
	_, _, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope.py"))
	require.Error(t, err)
}

func TestLoadCancelled(t *testing.T) {
	t.Parallel()
	script, site := createExperiment(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewLoader(filepath.Dir(script), []string{site}, nil)
	_, _, err := l.Load(ctx, script)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoaderImport(t *testing.T) {
	t.Parallel()
	site := t.TempDir()
	writeFile(t, site, "numpy/__init__.py", "__version__ = '1.26.4'\nimport numpy.core\n")

	l := NewLoader(t.TempDir(), []string{site}, nil)
	m, ok := l.Import(context.Background(), "numpy")
	require.True(t, ok)
	assert.Equal(t, model.String("1.26.4"), m.Attrs["__version__"])

	_, ok = l.Import(context.Background(), "scipy")
	assert.False(t, ok)
}

func importOf(module string, level int) parse.Import {
	return parse.Import{Module: module, Level: level, From: true}
}

func TestAbsoluteName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		module string
		level  int
		pkg    string
		want   string
		ok     bool
	}{
		{"a.b", 0, "", "a.b", true},
		{"", 1, "pkg.sub", "pkg.sub", true},
		{"mod", 1, "pkg.sub", "pkg.sub.mod", true},
		{"mod", 2, "pkg.sub", "pkg.mod", true},
		{"mod", 3, "pkg.sub", "", false},
		{"mod", 1, "", "", false},
	}
	for _, tc := range cases {
		got, ok := absoluteName(importOf(tc.module, tc.level), tc.pkg)
		assert.Equal(t, tc.ok, ok, "%+v", tc)
		assert.Equal(t, tc.want, got, "%+v", tc)
	}
}

func TestDecodeManifest(t *testing.T) {
	t.Parallel()
	reg, ns, err := DecodeManifest([]byte(`
file: /exp/run.py
builtins: [sys]
namespace:
  - {name: np, module: numpy}
  - {name: Gadget, module: widgets.core}
modules:
  - name: numpy
    file: /site/numpy/__init__.py
    attrs: {__version__: "1.26.4"}
  - name: widgets
    file: /site/widgets/__init__.py
    attrs: {VERSION: [2, 0, 1], version: 3.5}
  - name: sys
`))
	require.NoError(t, err)

	assert.Equal(t, "/exp/run.py", ns.File)
	assert.Equal(t, []model.Binding{
		{Name: "np", Module: "numpy"},
		{Name: "Gadget", Module: "widgets.core"},
	}, ns.Bindings)

	assert.Equal(t, []string{"numpy", "sys", "widgets"}, reg.Names())
	assert.True(t, reg.Blacklisted("sys"))
	assert.True(t, reg.Blacklisted("__main__"))
	assert.False(t, reg.Blacklisted("time"), "explicit builtins replace the defaults")

	w, _ := reg.Lookup("widgets")
	assert.Equal(t, model.Tuple("2", "0", "1"), w.Attrs["VERSION"])
	assert.Equal(t, model.OtherValue, w.Attrs["version"].Kind)
}

func TestDecodeManifestJSON(t *testing.T) {
	t.Parallel()
	reg, ns, err := DecodeManifest([]byte(`{"file": "/exp/run.py", "modules": [{"name": "widgets", "attrs": {"__version__": "2.0"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "/exp/run.py", ns.File)
	assert.True(t, reg.Blacklisted("sys"))
	_, ok := reg.Lookup("widgets")
	assert.True(t, ok)
}

func TestLoadManifestMissing(t *testing.T) {
	t.Parallel()
	_, _, err := LoadManifest(filepath.Join(t.TempDir(), "manifest.yaml"))
	require.Error(t, err)
}
