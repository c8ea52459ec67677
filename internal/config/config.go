// Package config loads provenance settings from flags, environment,
// provenance.yaml and pyproject.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// FileName is the project configuration file looked up in the base
	// directory.
	FileName = "provenance.yaml"
	// PyProjectName is the file whose [tool.provenance] table is merged
	// below FileName.
	PyProjectName = "pyproject.toml"

	envPrefix = "PROVENANCE"
)

// Configuration keys.
const (
	SourcesKey          = "discover.sources"
	DependenciesKey     = "discover.dependencies"
	RespectGitignoreKey = "discover.respect_gitignore"
	NumericPackageKey   = "discover.numeric_package"
	FillVersionsKey     = "discover.fill_versions"

	PythonPathKey   = "python.path"
	SitePackagesKey = "python.site_packages"
	InterpreterKey  = "python.interpreter"

	FormatKey   = "output.format"
	RelativeKey = "output.relative"

	LogLevelKey      = "log.level"
	LogFileKey       = "log.file"
	LogMaxSizeKey    = "log.max_size"
	LogMaxBackupsKey = "log.max_backups"
	LogMaxAgeKey     = "log.max_age"
	LogCompressKey   = "log.compress"
)

// Defaults holds the value of every key before any source is applied.
var Defaults = map[string]any{
	SourcesKey:          "imported",
	DependenciesKey:     "imported",
	RespectGitignoreKey: false,
	NumericPackageKey:   "numpy",
	FillVersionsKey:     true,
	PythonPathKey:       []string{},
	SitePackagesKey:     []string{},
	InterpreterKey:      "",
	FormatKey:           "toon",
	RelativeKey:         false,
	LogLevelKey:         "info",
	LogFileKey:          "",
	LogMaxSizeKey:       10,
	LogMaxBackupsKey:    3,
	LogMaxAgeKey:        28,
	LogCompressKey:      true,
}

// Log configures logging output.
type Log struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Config is the resolved configuration of one run.
type Config struct {
	Sources          string
	Dependencies     string
	RespectGitignore bool
	NumericPackage   string
	FillVersions     bool

	PythonPath   []string
	SitePackages []string
	Interpreter  string

	Format   string
	Relative bool

	Log Log

	// File is the configuration file that was read, if any.
	File string
}

// New returns a viper instance carrying the defaults and reading
// PROVENANCE_* environment variables.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// ConfigFile, when set, replaces the lookup of FileName in Dir and
	// must exist.
	ConfigFile string
	// Dir is searched for FileName and PyProjectName.
	Dir string
}

// Load reads configuration files into v and resolves the result. Flags
// bound to v before the call take precedence over every file.
func Load(v *viper.Viper, opts LoadOptions) (*Config, error) {
	if opts.Dir != "" {
		if err := mergePyProject(v, filepath.Join(opts.Dir, PyProjectName)); err != nil {
			return nil, err
		}
	}

	file := opts.ConfigFile
	if file == "" && opts.Dir != "" {
		candidate := filepath.Join(opts.Dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			file = candidate
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	cfg := &Config{
		Sources:          v.GetString(SourcesKey),
		Dependencies:     v.GetString(DependenciesKey),
		RespectGitignore: v.GetBool(RespectGitignoreKey),
		NumericPackage:   v.GetString(NumericPackageKey),
		FillVersions:     v.GetBool(FillVersionsKey),
		PythonPath:       v.GetStringSlice(PythonPathKey),
		SitePackages:     v.GetStringSlice(SitePackagesKey),
		Interpreter:      v.GetString(InterpreterKey),
		Format:           v.GetString(FormatKey),
		Relative:         v.GetBool(RelativeKey),
		Log: Log{
			Level:      v.GetString(LogLevelKey),
			File:       v.GetString(LogFileKey),
			MaxSize:    v.GetInt(LogMaxSizeKey),
			MaxBackups: v.GetInt(LogMaxBackupsKey),
			MaxAge:     v.GetInt(LogMaxAgeKey),
			Compress:   v.GetBool(LogCompressKey),
		},
		File: file,
	}
	return cfg, nil
}

// mergePyProject merges the [tool.provenance] table of path into v. A
// missing file or table is not an error.
func mergePyProject(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var doc struct {
		Tool struct {
			Provenance map[string]any `toml:"provenance"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(doc.Tool.Provenance) == 0 {
		return nil
	}
	if err := v.MergeConfigMap(doc.Tool.Provenance); err != nil {
		return fmt.Errorf("merging %s: %w", path, err)
	}
	return nil
}
