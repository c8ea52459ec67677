// Package gather collects the local sources and package dependencies of a
// run using configurable discovery strategies.
package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phobologic/provenance/internal/discover"
	"github.com/phobologic/provenance/internal/model"
	"github.com/phobologic/provenance/internal/scan"
	"github.com/phobologic/provenance/internal/site"
	"github.com/phobologic/provenance/internal/vcs"
)

// ErrUnknownStrategy is returned for a strategy name missing from the
// strategy tables.
var ErrUnknownStrategy = errors.New("unknown discovery strategy")

// Importer loads a single module by name, reporting false when it cannot
// be imported.
type Importer interface {
	Import(ctx context.Context, name string) (*model.Module, bool)
}

// Env is the read-only environment strategies run against.
type Env struct {
	Registry  scan.Registry
	Installed *site.Index
	Importer  Importer // optional
	Walk      discover.Options

	repos *vcs.Cache // set per Gather call
}

// SourceStrategy discovers local sources for the namespace rooted at base.
type SourceStrategy func(env *Env, ns *model.Namespace, base string) (*model.SourceSet, error)

// DependencyStrategy discovers package dependencies for the namespace
// rooted at base.
type DependencyStrategy func(env *Env, ns *model.Namespace, base string) (*model.DependencySet, error)

// SourceStrategies maps configuration names to source strategies.
var SourceStrategies = map[string]SourceStrategy{
	"none": func(_ *Env, _ *model.Namespace, base string) (*model.SourceSet, error) {
		return SourcesFrom(scan.None(), base, nil)
	},
	"imported": func(env *Env, ns *model.Namespace, base string) (*model.SourceSet, error) {
		return SourcesFrom(scan.Imported(ns, env.Registry), base, env.repos)
	},
	"sys": func(env *Env, _ *model.Namespace, base string) (*model.SourceSet, error) {
		return SourcesFrom(scan.Process(env.Registry), base, env.repos)
	},
	"dir": sourcesFromDirectory,
}

// DependencyStrategies maps configuration names to dependency strategies.
var DependencyStrategies = map[string]DependencyStrategy{
	"none": func(_ *Env, _ *model.Namespace, base string) (*model.DependencySet, error) {
		return DependenciesFrom(scan.None(), base), nil
	},
	"imported": func(env *Env, ns *model.Namespace, base string) (*model.DependencySet, error) {
		return DependenciesFrom(scan.Imported(ns, env.Registry), base), nil
	},
	"sys": func(env *Env, _ *model.Namespace, base string) (*model.DependencySet, error) {
		return DependenciesFrom(scan.Process(env.Registry), base), nil
	},
	"pkg": dependenciesFromInstalled,
}

func sourcesFromDirectory(env *Env, _ *model.Namespace, base string) (*model.SourceSet, error) {
	files, err := scan.Directory(base, env.Walk)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", base, err)
	}
	sources := model.NewSourceSet()
	for _, f := range files {
		s, err := model.NewSourceWith(f, env.repos)
		if err != nil {
			return nil, err
		}
		sources.Add(s)
	}
	return sources, nil
}

// dependenciesFromInstalled ignores loaded modules and reports every
// installed distribution under its normalized key.
func dependenciesFromInstalled(env *Env, _ *model.Namespace, _ string) (*model.DependencySet, error) {
	deps := model.NewDependencySet()
	if env.Installed == nil {
		return deps, nil
	}
	for _, d := range env.Installed.All() {
		deps.Add(model.PackageDependency{Name: d.Key(), Version: d.Version})
	}
	return deps, nil
}

// Options selects strategies and post-processing.
type Options struct {
	Sources      string
	Dependencies string
	// NumericPackage is always reported when importable; "" disables it.
	NumericPackage string
	FillVersions   bool
}

// Result is the outcome of Gather.
type Result struct {
	Main         *model.Source
	BaseDir      string
	Sources      *model.SourceSet
	Dependencies *model.DependencySet
}

// Record converts the result into a provenance record.
func (r *Result) Record() *model.Record {
	return model.NewRecord(r.BaseDir, r.Main, r.Sources, r.Dependencies)
}

// Gather resolves the main file of ns, then runs the configured source and
// dependency strategies against it. Empty results are not an error.
func Gather(ctx context.Context, env *Env, ns *model.Namespace, opts Options) (*Result, error) {
	gatherSources, ok := SourceStrategies[opts.Sources]
	if !ok {
		return nil, fmt.Errorf("%w: sources %q", ErrUnknownStrategy, opts.Sources)
	}
	gatherDeps, ok := DependencyStrategies[opts.Dependencies]
	if !ok {
		return nil, fmt.Errorf("%w: dependencies %q", ErrUnknownStrategy, opts.Dependencies)
	}

	run := *env
	run.repos = vcs.NewCache()
	env = &run

	base, main, err := mainFile(ns, env.repos)
	if err != nil {
		return nil, err
	}

	sources, err := gatherSources(env, ns, base)
	if err != nil {
		return nil, fmt.Errorf("gathering sources: %w", err)
	}
	if main != nil {
		sources.Add(*main)
	}

	deps, err := gatherDeps(env, ns, base)
	if err != nil {
		return nil, fmt.Errorf("gathering dependencies: %w", err)
	}

	if opts.NumericPackage != "" {
		if m, ok := importable(ctx, env, opts.NumericPackage); ok {
			if d, err := model.NewDependency(m); err == nil {
				deps.Add(d)
			}
		}
	}

	if opts.FillVersions {
		var installed model.VersionLookup
		if env.Installed != nil {
			installed = env.Installed
		}
		deps.FillMissingVersions(installed)
	}

	slog.Debug("gathered provenance",
		"base", base,
		"sources", sources.Len(),
		"dependencies", deps.Len(),
		"source_strategy", opts.Sources,
		"dependency_strategy", opts.Dependencies,
	)

	return &Result{Main: main, BaseDir: base, Sources: sources, Dependencies: deps}, nil
}

// mainFile returns the experiment base path and the main source of ns.
// Without a main file the working directory is the base path.
func mainFile(ns *model.Namespace, repos *vcs.Cache) (string, *model.Source, error) {
	if ns == nil || ns.File == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", nil, fmt.Errorf("resolving working directory: %w", err)
		}
		return wd, nil, nil
	}
	main, err := model.NewSourceWith(ns.File, repos)
	if err != nil {
		return "", nil, err
	}
	return filepath.Dir(main.Filename), &main, nil
}

func importable(ctx context.Context, env *Env, name string) (*model.Module, bool) {
	if env.Registry != nil {
		if m, ok := env.Registry.Lookup(name); ok {
			return m, true
		}
	}
	if env.Importer != nil {
		return env.Importer.Import(ctx, name)
	}
	return nil, false
}
