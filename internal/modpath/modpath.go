// Package modpath converts between filesystem paths and dotted Python
// module names.
package modpath

import (
	"path/filepath"
	"strings"
)

const sep = string(filepath.Separator)

var packageInitFiles = map[string]struct{}{
	"__init__.py":  {},
	"__init__.pyc": {},
}

// split divides path after its final separator. Trailing separators are
// trimmed from the head unless the head consists only of separators.
func split(path string) (head, tail string) {
	i := strings.LastIndex(path, sep) + 1
	head, tail = path[:i], path[i:]
	if head != "" && strings.Trim(head, sep) != "" {
		head = strings.TrimRight(head, sep)
	}
	return head, tail
}

// SplitAll splits path into all of its components. Absolute paths keep
// their root as the first component:
//
//	"foo/bar/baz.py"    => ["foo", "bar", "baz.py"]
//	"/absolute/path.py" => ["/", "absolute", "path.py"]
func SplitAll(path string) []string {
	var parts []string
	for {
		head, tail := split(path)
		if head == path {
			parts = append(parts, head)
			break
		}
		if tail == path {
			parts = append(parts, tail)
			break
		}
		path = head
		parts = append(parts, tail)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return parts
}

// ModuleParts converts the path of a Python file into module name parts.
// A trailing package initializer is dropped; otherwise the extension of the
// last part is removed.
func ModuleParts(path string) []string {
	parts := SplitAll(path)
	last := parts[len(parts)-1]
	if _, ok := packageInitFiles[last]; ok {
		return parts[:len(parts)-1]
	}
	parts[len(parts)-1] = strings.TrimSuffix(last, filepath.Ext(last))
	return parts
}

// lexical returns the cleaned absolute form of path without touching the
// filesystem.
func lexical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// absolute returns lexical(path) with symlinks resolved when the path
// exists.
func absolute(path string) string {
	abs := lexical(path)
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// IsSubdir reports whether path is dir or lies below it.
func IsSubdir(path, dir string) bool {
	p := absolute(path) + sep
	d := absolute(dir)
	if !strings.HasSuffix(d, sep) {
		d += sep
	}
	return strings.HasPrefix(p, d)
}

// IsLocalSource reports whether the module modname loaded from filename
// belongs to the experiment rooted at basePath.
//
// The decision has three tiers and their order matters: an exact match of
// the relative path against the module name wins; a relative path with more
// parts than the name is rejected; otherwise the name must match the
// trailing parts of the absolute path. Symlinks are resolved only for the
// containment check; the name comparison uses the path as given.
func IsLocalSource(filename, modname, basePath string) bool {
	if !IsSubdir(filename, basePath) {
		return false
	}
	rel, err := filepath.Rel(lexical(basePath), lexical(filename))
	if err != nil {
		return false
	}
	pathParts := ModuleParts(rel)
	modParts := strings.Split(modname, ".")

	if equal(pathParts, modParts) {
		return true
	}
	if len(pathParts) > len(modParts) {
		return false
	}

	absParts := ModuleParts(lexical(filename))
	for i, j := len(absParts)-1, len(modParts)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if absParts[i] != modParts[j] {
			return false
		}
	}
	return true
}

// Prefixes returns every dotted prefix of name, shortest first:
// "a.b.c" => ["a", "a.b", "a.b.c"].
func Prefixes(name string) []string {
	parts := strings.Split(name, ".")
	out := make([]string, len(parts))
	for i := range parts {
		out[i] = strings.Join(parts[:i+1], ".")
	}
	return out
}

// Parent returns the dotted name without its last part, or "" for a
// top-level name.
func Parent(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[:i]
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
