// Package report writes provenance records in the supported output formats.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/provenance/internal/model"
	"github.com/phobologic/provenance/internal/toon"
)

// ErrUnknownFormat is returned for an output format other than those in
// Formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the accepted output format names.
var Formats = []string{"toon", "json", "yaml"}

// Source is the serialized form of a source file.
type Source struct {
	Path   string `json:"path" yaml:"path"`
	Digest string `json:"digest" yaml:"digest"`
	Repo   string `json:"repo,omitempty" yaml:"repo,omitempty"`
	Commit string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Dirty  *bool  `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

// Document is the serialized form of a record.
type Document struct {
	ID           string             `json:"id" yaml:"id"`
	CreatedAt    time.Time          `json:"created_at" yaml:"created_at"`
	BaseDir      string             `json:"base_dir" yaml:"base_dir"`
	Main         string             `json:"main,omitempty" yaml:"main,omitempty"`
	Sources      []Source           `json:"sources" yaml:"sources"`
	Dependencies []string           `json:"dependencies" yaml:"dependencies"`
	Repositories []model.Repository `json:"repositories,omitempty" yaml:"repositories,omitempty"`
}

// NewDocument flattens rec. When relative is set, paths are written
// relative to the base directory.
func NewDocument(rec *model.Record, relative bool) Document {
	base := ""
	if relative {
		base = rec.BaseDir
	}
	doc := Document{
		ID:           rec.ID.String(),
		CreatedAt:    rec.CreatedAt,
		BaseDir:      rec.BaseDir,
		Sources:      make([]Source, 0, len(rec.Sources)),
		Dependencies: make([]string, 0, len(rec.Dependencies)),
		Repositories: rec.Repositories,
	}
	if rec.Main != nil {
		doc.Main, _ = rec.Main.Serialize(base)
	}
	for _, s := range rec.Sources {
		path, digest := s.Serialize(base)
		doc.Sources = append(doc.Sources, Source{
			Path:   path,
			Digest: digest,
			Repo:   s.Repo,
			Commit: s.Commit,
			Dirty:  s.Dirty,
		})
	}
	for _, d := range rec.Dependencies {
		doc.Dependencies = append(doc.Dependencies, d.Serialize())
	}
	return doc
}

// Write encodes rec to w in the named format.
func Write(w io.Writer, format string, rec *model.Record, relative bool) error {
	switch format {
	case "toon":
		_, err := fmt.Fprintln(w, toon.Encode(rec, relative))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewDocument(rec, relative))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(rec, relative)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
