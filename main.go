// provenance records the local sources and package dependencies of a
// Python experiment.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/phobologic/provenance/internal/config"
	"github.com/phobologic/provenance/internal/discover"
	"github.com/phobologic/provenance/internal/gather"
	"github.com/phobologic/provenance/internal/logging"
	"github.com/phobologic/provenance/internal/model"
	"github.com/phobologic/provenance/internal/registry"
	"github.com/phobologic/provenance/internal/report"
	"github.com/phobologic/provenance/internal/site"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// rootFlags holds the flags that are not configuration keys.
type rootFlags struct {
	configFile  string
	manifest    string
	verbose     bool
	showVersion bool
}

// configFlags maps flag names to the configuration keys they override.
var configFlags = map[string]string{
	"sources":           config.SourcesKey,
	"deps":              config.DependenciesKey,
	"respect-gitignore": config.RespectGitignoreKey,
	"numeric-package":   config.NumericPackageKey,
	"fill-versions":     config.FillVersionsKey,
	"python-path":       config.PythonPathKey,
	"site-packages":     config.SitePackagesKey,
	"python":            config.InterpreterKey,
	"format":            config.FormatKey,
	"relative":          config.RelativeKey,
	"log-level":         config.LogLevelKey,
	"log-file":          config.LogFileKey,
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var rf rootFlags

	cmd := &cobra.Command{
		Use:   "provenance [flags] [script]",
		Short: "Record the sources and dependencies of a Python experiment",
		Long: `provenance follows the imports of a Python script (or reads a module
manifest written by the running interpreter) and prints a record of the
local source files involved, with their digests and git state, and of the
third-party packages with their versions.

Without a script or manifest the working directory is the experiment base.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rf.showVersion {
				_, _ = fmt.Fprintf(stdout, "provenance %s\n", version)
				return nil
			}
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return record(cmd.Context(), cmd.Flags(), rf, script, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&rf.configFile, "config", "", "configuration file (default ./"+config.FileName+" next to the script)")
	flags.StringVarP(&rf.manifest, "manifest", "m", "", "module manifest written by the running interpreter")
	flags.BoolVarP(&rf.verbose, "verbose", "v", false, "log at debug level")
	flags.BoolVarP(&rf.showVersion, "version", "V", false, "show version and exit")

	flags.String("sources", config.Defaults[config.SourcesKey].(string), "source strategy: "+strings.Join(strategyNames(gather.SourceStrategies), ", "))
	flags.String("deps", config.Defaults[config.DependenciesKey].(string), "dependency strategy: "+strings.Join(strategyNames(gather.DependencyStrategies), ", "))
	flags.Bool("respect-gitignore", false, "skip gitignored files with the dir source strategy")
	flags.String("numeric-package", config.Defaults[config.NumericPackageKey].(string), "package always reported when importable")
	flags.Bool("fill-versions", true, "fill missing versions from installed package metadata")
	flags.StringSlice("python-path", nil, "extra import roots searched after the script directory")
	flags.StringSlice("site-packages", nil, "site-packages directories (searched for imports and metadata)")
	flags.String("python", "", "interpreter to query for sys.path and builtin modules")
	flags.StringP("format", "f", config.Defaults[config.FormatKey].(string), "output format: "+strings.Join(report.Formats, ", "))
	flags.Bool("relative", false, "write source paths relative to the base directory")
	flags.String("log-level", config.Defaults[config.LogLevelKey].(string), "log level: debug, info, warn, error")
	flags.String("log-file", "", "write logs to a rotated file instead of stderr")

	cmd.AddCommand(newInitCmd(stdout, stderr))
	return cmd
}

// bindFlags wires every configuration flag to its viper key so that
// explicitly set flags override config files and the environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range configFlags {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag for config key %q not found", key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

func record(ctx context.Context, flags *pflag.FlagSet, rf rootFlags, script string, stdout, stderr io.Writer) error {
	base, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	if script != "" {
		script, err = filepath.Abs(script)
		if err != nil {
			return fmt.Errorf("resolving script: %w", err)
		}
		base = filepath.Dir(script)
	}

	v := config.New()
	if err := bindFlags(v, flags); err != nil {
		return err
	}
	cfg, err := config.Load(v, config.LoadOptions{ConfigFile: rf.configFile, Dir: base})
	if err != nil {
		return err
	}
	logging.Setup(cfg.Log, rf.verbose, stderr)
	if cfg.File != "" {
		slog.Debug("configuration loaded", "file", cfg.File)
	}

	if !slices.Contains(report.Formats, cfg.Format) {
		return fmt.Errorf("%w: %q", report.ErrUnknownFormat, cfg.Format)
	}

	searchPath := absPaths(base, cfg.PythonPath)
	sitePackages := absPaths(base, cfg.SitePackages)
	builtins := registry.DefaultBuiltins
	if cfg.Interpreter != "" {
		info, err := registry.QueryInterpreter(ctx, cfg.Interpreter)
		if err != nil {
			return err
		}
		searchPath = append(searchPath, info.Path...)
		if len(sitePackages) == 0 {
			sitePackages = sitePackageDirs(info.Path)
		}
		if len(info.Builtins) > 0 {
			builtins = info.Builtins
		}
		slog.Debug("interpreter queried", "python", cfg.Interpreter, "path", len(info.Path), "builtins", len(info.Builtins))
	}
	searchPath = appendMissing(searchPath, sitePackages)

	env := &gather.Env{Walk: discover.Options{RespectGitignore: cfg.RespectGitignore}}
	var ns *model.Namespace
	switch {
	case rf.manifest != "":
		reg, mns, err := registry.LoadManifest(rf.manifest)
		if err != nil {
			return err
		}
		env.Registry, ns = reg, mns
	case script != "":
		loader := registry.NewLoader(base, searchPath, builtins)
		reg, sns, err := loader.Load(ctx, script)
		if err != nil {
			return err
		}
		env.Registry, env.Importer, ns = reg, loader, sns
	default:
		env.Registry = registry.New(builtins)
		env.Importer = registry.NewLoader(base, searchPath, builtins)
		ns = &model.Namespace{}
	}

	installed, err := site.Scan(sitePackages)
	if err != nil {
		return err
	}
	env.Installed = installed

	res, err := gather.Gather(ctx, env, ns, gather.Options{
		Sources:        cfg.Sources,
		Dependencies:   cfg.Dependencies,
		NumericPackage: cfg.NumericPackage,
		FillVersions:   cfg.FillVersions,
	})
	if err != nil {
		return err
	}

	return report.Write(stdout, cfg.Format, res.Record(), cfg.Relative)
}

// absPaths resolves relative entries of paths against base.
func absPaths(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// sitePackageDirs picks the site-packages entries of an interpreter path.
func sitePackageDirs(path []string) []string {
	var out []string
	for _, p := range path {
		switch filepath.Base(p) {
		case "site-packages", "dist-packages":
			out = append(out, p)
		}
	}
	return out
}

func appendMissing(dst, src []string) []string {
	for _, s := range src {
		if !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}

func strategyNames[T any](strategies map[string]T) []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
