// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/phobologic/provenance/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a provenance record into TOON format. When relative is
// set, source paths are written relative to the record's base directory.
func Encode(rec *model.Record, relative bool) string {
	base := ""
	if relative {
		base = rec.BaseDir
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("id: %s", encodeValue(rec.ID.String())))
	parts = append(parts, fmt.Sprintf("created: %s", encodeValue(rec.CreatedAt.Format(time.RFC3339))))
	parts = append(parts, fmt.Sprintf("base: %s", encodeValue(rec.BaseDir)))
	if rec.Main != nil {
		path, _ := rec.Main.Serialize(base)
		parts = append(parts, fmt.Sprintf("main: %s", encodeValue(path)))
	} else {
		parts = append(parts, "main: null")
	}

	var sourceRows [][]any
	for i := range rec.Sources {
		s := &rec.Sources[i]
		path, digest := s.Serialize(base)
		var dirty any
		if s.Dirty != nil {
			dirty = *s.Dirty
		}
		sourceRows = append(sourceRows, []any{path, digest, s.Repo, s.Commit, dirty})
	}
	parts = append(parts, formatTabular("sources", []string{"path", "digest", "repo", "commit", "dirty"}, sourceRows))

	var depRows [][]any
	for _, d := range rec.Dependencies {
		version := d.Version
		if version == "" {
			version = model.UnknownVersion
		}
		depRows = append(depRows, []any{d.Name, version})
	}
	parts = append(parts, formatTabular("dependencies", []string{"name", "version"}, depRows))

	if len(rec.Repositories) > 0 {
		var repoRows [][]any
		for _, r := range rec.Repositories {
			repoRows = append(repoRows, []any{r.URL, r.Commit, r.Dirty})
		}
		parts = append(parts, formatTabular("repositories", []string{"url", "commit", "dirty"}, repoRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeCell(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return encodeValue(v)
	default:
		return encodeValue(fmt.Sprint(v))
	}
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
