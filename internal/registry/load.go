package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/provenance/internal/digest"
	"github.com/phobologic/provenance/internal/lang"
	"github.com/phobologic/provenance/internal/model"
	"github.com/phobologic/provenance/internal/modpath"
	"github.com/phobologic/provenance/internal/parse"
)

// MainModule is the name the entry script runs under.
const MainModule = "__main__"

// Loader builds a registry by following imports from an entry script.
type Loader struct {
	Resolver *Resolver
	Builtins []string
	Workers  int // parse concurrency; GOMAXPROCS when <= 0
}

// NewLoader returns a loader that searches the script directory first and
// then searchPath.
func NewLoader(scriptDir string, searchPath, builtins []string) *Loader {
	path := append([]string{scriptDir}, searchPath...)
	return &Loader{
		Resolver: &Resolver{SearchPath: path},
		Builtins: builtins,
	}
}

// pending is a registered module whose file still needs parsing.
type pending struct {
	module *model.Module
	isPkg  bool
}

// Load parses script, follows its imports transitively and returns the
// registry of every resolvable module together with the script's namespace.
// Imports that cannot be resolved are left out, as a failed import is
// absent from the interpreter's module table.
func (l *Loader) Load(ctx context.Context, script string) (*Registry, *model.Namespace, error) {
	abs, err := filepath.Abs(script)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving script: %w", err)
	}
	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("reading script: %w", err)
	}
	main, err := parse.Module(lang.Python.NewParser(), source)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", abs, err)
	}

	reg := New(l.Builtins)
	ns := &model.Namespace{File: abs}

	var frontier []pending
	for _, imp := range main.Imports {
		ns.Bindings = append(ns.Bindings, l.bind(reg, imp, "", &frontier)...)
	}
	for _, name := range main.Definitions {
		ns.Bindings = append(ns.Bindings, model.Binding{Name: name, Module: MainModule})
	}

	for len(frontier) > 0 {
		results, err := l.parseAll(ctx, frontier)
		if err != nil {
			return nil, nil, err
		}

		var next []pending
		for i, p := range frontier {
			res := results[i]
			if res == nil {
				continue
			}
			p.module.Attrs = res.Assignments
			pkg := modpath.Parent(p.module.Name)
			if p.isPkg {
				pkg = p.module.Name
			}
			for _, imp := range res.Imports {
				l.bind(reg, imp, pkg, &next)
			}
		}
		frontier = next
	}

	slog.Debug("module registry loaded", "script", abs, "modules", reg.Len())
	return reg, ns, nil
}

// Import resolves and parses a single module without following its
// imports. It reports false when the module cannot be found.
func (l *Loader) Import(ctx context.Context, name string) (*model.Module, bool) {
	loc, ok := l.Resolver.Resolve(name)
	if !ok {
		return nil, false
	}
	m := &model.Module{Name: name, File: loc.File}
	if path := parseablePath(loc.File); path != "" {
		results, err := l.parseAll(ctx, []pending{{module: m}})
		if err == nil && results[0] != nil {
			m.Attrs = results[0].Assignments
		}
	}
	return m, true
}

// bind registers the modules imp needs and returns the names it binds.
// pkg is the package of the importing module, used for relative imports.
func (l *Loader) bind(reg *Registry, imp parse.Import, pkg string, frontier *[]pending) []model.Binding {
	name, ok := absoluteName(imp, pkg)
	if !ok {
		slog.Debug("relative import outside a package", "module", imp.Module, "level", imp.Level)
		return nil
	}
	if !l.require(reg, name, frontier) {
		slog.Debug("unresolved import", "module", name, "line", imp.Line)
		return nil
	}

	if !imp.From {
		if imp.Alias != "" {
			return []model.Binding{{Name: imp.Alias, Module: name}}
		}
		top := modpath.Prefixes(name)[0]
		return []model.Binding{{Name: top, Module: top}}
	}

	var out []model.Binding
	if imp.Star {
		out = append(out, model.Binding{Name: "*", Module: name})
	}
	for _, n := range imp.Names {
		sub := name + "." + n.Name
		if l.require(reg, sub, frontier) {
			out = append(out, model.Binding{Name: n.Bound(), Module: sub})
			continue
		}
		out = append(out, model.Binding{Name: n.Bound(), Module: name})
	}
	return out
}

// require registers name and all of its parent packages, queueing newly
// found source files for parsing. It reports whether name resolved.
func (l *Loader) require(reg *Registry, name string, frontier *[]pending) bool {
	for _, prefix := range modpath.Prefixes(name) {
		if _, ok := reg.Lookup(prefix); ok {
			continue
		}
		if reg.Blacklisted(prefix) {
			return false
		}
		loc, ok := l.Resolver.Resolve(prefix)
		if !ok {
			return false
		}
		m := &model.Module{Name: prefix, File: loc.File}
		reg.Add(m)
		if parseablePath(loc.File) != "" {
			*frontier = append(*frontier, pending{module: m, isPkg: len(loc.Dirs) > 0})
		}
	}
	return true
}

// parseAll parses the files of batch concurrently. The result at index i
// belongs to batch[i] and is nil when the file could not be parsed.
func (l *Loader) parseAll(ctx context.Context, batch []pending) ([]*parse.Result, error) {
	workers := l.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*parse.Result, len(batch))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := parseablePath(batch[i].module.File)
			source, err := os.ReadFile(path)
			if err != nil {
				slog.Debug("skipping unreadable module", "module", batch[i].module.Name, "error", err)
				return nil
			}
			// Each goroutine gets its own parser
			res, err := parse.Module(lang.Python.NewParser(), source)
			if err != nil {
				slog.Debug("skipping unparseable module", "module", batch[i].module.Name, "error", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseablePath returns the Python source for file, following a .pyc to
// its .py sibling, or "" when there is no source to parse.
func parseablePath(file string) string {
	if file == "" {
		return ""
	}
	path := digest.ResolveSourceFile(file)
	if lang.ForExtension(filepath.Ext(path)) != lang.Python.Name {
		return ""
	}
	return path
}

// absoluteName resolves a possibly relative import against pkg.
func absoluteName(imp parse.Import, pkg string) (string, bool) {
	if imp.Level == 0 {
		return imp.Module, imp.Module != ""
	}
	if pkg == "" {
		return "", false
	}
	parts := strings.Split(pkg, ".")
	if imp.Level > len(parts) {
		return "", false
	}
	base := strings.Join(parts[:len(parts)-imp.Level+1], ".")
	if imp.Module == "" {
		return base, true
	}
	return base + "." + imp.Module, true
}
