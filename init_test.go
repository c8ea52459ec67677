package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/provenance/internal/config"
)

// TestGenerateConfigLoadsAsDefaults verifies that the generated file,
// read back through the config loader, yields the built-in defaults.
func TestGenerateConfigLoadsAsDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(generateConfig()), 0o644))

	got, err := config.Load(config.New(), config.LoadOptions{Dir: dir})
	require.NoError(t, err, "loading generated config")
	want, err := config.Load(config.New(), config.LoadOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, want.Sources, got.Sources)
	assert.Equal(t, want.Dependencies, got.Dependencies)
	assert.Equal(t, want.NumericPackage, got.NumericPackage)
	assert.Equal(t, want.FillVersions, got.FillVersions)
	assert.Equal(t, want.Format, got.Format)
	assert.Equal(t, want.Relative, got.Relative)
	assert.Equal(t, want.Log, got.Log)
	assert.Empty(t, got.PythonPath)
	assert.Empty(t, got.SitePackages)
	assert.Empty(t, got.Interpreter)
}

// TestGenerateConfigListsStrategies verifies that every strategy name is
// documented in the generated file.
func TestGenerateConfigListsStrategies(t *testing.T) {
	t.Parallel()
	content := generateConfig()
	for _, name := range []string{"none", "imported", "sys", "dir", "pkg", "toon", "json", "yaml"} {
		assert.Contains(t, content, name)
	}
}

// TestInitCreatesFile verifies that init creates the target file when it
// does not exist.
func TestInitCreatesFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", path}, &stdout, &stderr))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, generateConfig(), string(data))
	assert.Contains(t, stderr.String(), path, "stderr should name the written file")
	assert.Zero(t, stdout.Len())
}

// TestInitDirectory verifies that a directory argument receives the default
// file name.
func TestInitDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", dir}, &stdout, &stderr))
	assert.FileExists(t, filepath.Join(dir, config.FileName))
}

// TestInitRefusesOverwrite verifies that an existing file is preserved
// without --force and replaced with it.
func TestInitRefusesOverwrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	const existing = "output:\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	var stdout, stderr bytes.Buffer
	err := run([]string{"init", path}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, existing, string(data), "existing file was modified")

	require.NoError(t, run([]string{"init", "--force", path}, &stdout, &stderr))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, generateConfig(), string(data))
}

// TestInitDryRun verifies that --dry-run prints the file without creating
// it.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", "--dry-run", path}, &stdout, &stderr))
	assert.Equal(t, generateConfig(), stdout.String())
	assert.NoFileExists(t, path)
}
