package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/provenance/internal/config"
	"github.com/phobologic/provenance/internal/gather"
	"github.com/phobologic/provenance/internal/report"
)

// newInitCmd implements `provenance init`, which writes a provenance.yaml
// holding every setting at its default value.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun, force bool

	cmd := &cobra.Command{
		Use:   "init [flags] [path]",
		Short: "Write a default " + config.FileName,
		Long: `Write a ` + config.FileName + ` listing every setting at its default value.

path defaults to ./` + config.FileName + `. When path is a directory the file is
created inside it. An existing file is left alone unless --force is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, dryRun, force, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the file instead of writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func runInit(path string, dryRun, force bool, stdout, stderr io.Writer) error {
	content := generateConfig()

	if dryRun {
		_, _ = fmt.Fprint(stdout, content)
		return nil
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, config.FileName)
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote default configuration to %s\n", path)
	return nil
}

// generateConfig returns the default configuration file.
func generateConfig() string {
	return `# provenance configuration. Command-line flags and PROVENANCE_* environment
# variables override these values; [tool.provenance] in pyproject.toml is
# read below this file.

discover:
  # Local source strategy: ` + strings.Join(strategyNames(gather.SourceStrategies), ", ") + `.
  sources: ` + config.Defaults[config.SourcesKey].(string) + `
  # Dependency strategy: ` + strings.Join(strategyNames(gather.DependencyStrategies), ", ") + `.
  dependencies: ` + config.Defaults[config.DependenciesKey].(string) + `
  # Skip gitignored files with the dir source strategy.
  respect_gitignore: false
  # Reported whenever it can be imported. Empty disables it.
  numeric_package: ` + config.Defaults[config.NumericPackageKey].(string) + `
  # Look up missing versions in installed package metadata.
  fill_versions: true

python:
  # Import roots searched after the script directory. Relative entries
  # are resolved against the script directory.
  path: []
  # site-packages directories, searched for imports and package metadata.
  site_packages: []
  # Interpreter queried for sys.path and builtin module names.
  interpreter: ""

output:
  # ` + strings.Join(report.Formats, ", ") + `
  format: ` + config.Defaults[config.FormatKey].(string) + `
  relative: false

log:
  level: info
  # Rotated log file; logs go to stderr when empty.
  file: ""
  max_size: 10
  max_backups: 3
  max_age: 28
  compress: true
`
}
