// Package site reads the installed-distribution metadata of Python
// site-packages directories.
package site

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9.]+`)

// NormalizeName returns the registry key for a distribution or module
// name: runs of characters other than letters, digits and '.' become '-'
// and the result is lowercased. "Foo_Bar" and "foo-bar" share a key.
func NormalizeName(name string) string {
	return strings.ToLower(unsafeName.ReplaceAllString(name, "-"))
}

// Distribution is one installed package.
type Distribution struct {
	Name    string
	Version string
	Path    string
}

// Key returns the normalized name the distribution is reported and
// looked up under.
func (d Distribution) Key() string {
	return NormalizeName(d.Name)
}

// Index holds the distributions found in a set of directories. The first
// directory providing a key wins, matching search-path order.
type Index struct {
	byKey map[string]Distribution
}

var metadataFiles = map[string]string{
	".dist-info": "METADATA",
	".egg-info":  "PKG-INFO",
}

// Scan reads every *.dist-info and *.egg-info entry found directly inside
// dirs. Directories that do not exist are skipped.
func Scan(dirs []string) (*Index, error) {
	idx := &Index{byKey: make(map[string]Distribution)}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			metaName, ok := metadataFiles[ext]
			if !ok {
				continue
			}

			path := filepath.Join(dir, e.Name())
			metaPath := path
			if e.IsDir() {
				metaPath = filepath.Join(path, metaName)
			}

			dist, err := readMetadata(metaPath)
			if err != nil {
				slog.Debug("distribution metadata unreadable, using entry name", "path", metaPath, "error", err)
				dist = fromEntryName(strings.TrimSuffix(e.Name(), ext))
			}
			if dist.Name == "" {
				continue
			}
			dist.Path = path
			if _, dup := idx.byKey[dist.Key()]; !dup {
				idx.byKey[dist.Key()] = dist
			}
		}
	}
	return idx, nil
}

// readMetadata parses the RFC 822 style header block of a metadata file.
func readMetadata(path string) (Distribution, error) {
	f, err := os.Open(path)
	if err != nil {
		return Distribution{}, err
	}
	defer f.Close()

	hdr, err := textproto.NewReader(bufio.NewReader(f)).ReadMIMEHeader()
	if err != nil && len(hdr) == 0 {
		return Distribution{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return Distribution{Name: hdr.Get("Name"), Version: hdr.Get("Version")}, nil
}

// fromEntryName splits "name-version" as used in metadata directory names.
func fromEntryName(stem string) Distribution {
	name, version, _ := strings.Cut(stem, "-")
	return Distribution{Name: name, Version: version}
}

// Lookup returns the distribution whose key equals the normalized name.
func (idx *Index) Lookup(name string) (Distribution, bool) {
	d, ok := idx.byKey[NormalizeName(name)]
	return d, ok
}

// Version returns the installed version of name.
func (idx *Index) Version(name string) (string, bool) {
	d, ok := idx.Lookup(name)
	if !ok || d.Version == "" {
		return "", false
	}
	return d.Version, true
}

// All returns every distribution ordered by key.
func (idx *Index) All() []Distribution {
	out := make([]Distribution, 0, len(idx.byKey))
	for _, d := range idx.byKey {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}

// Len returns the number of distributions.
func (idx *Index) Len() int {
	return len(idx.byKey)
}
