package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/provenance/internal/model"
)

// manifest is the document a running interpreter writes to describe its
// module table. JSON is accepted since it is valid YAML.
//
//	file: /exp/run.py
//	builtins: [sys, time]
//	namespace:
//	  - {name: np, module: numpy}
//	  - {name: Gadget, module: widgets.core}
//	modules:
//	  - name: numpy
//	    file: /venv/lib/python3.12/site-packages/numpy/__init__.py
//	    attrs: {__version__: "1.26.4"}
type manifest struct {
	File      string            `yaml:"file"`
	Builtins  []string          `yaml:"builtins"`
	Namespace []manifestBinding `yaml:"namespace"`
	Modules   []manifestModule  `yaml:"modules"`
}

type manifestBinding struct {
	Name   string `yaml:"name"`
	Module string `yaml:"module"`
}

type manifestModule struct {
	Name  string         `yaml:"name"`
	File  string         `yaml:"file"`
	Attrs map[string]any `yaml:"attrs"`
}

// LoadManifest reads a manifest file into a registry and namespace. When
// the manifest lists no builtins, DefaultBuiltins are blacklisted.
func LoadManifest(path string) (*Registry, *model.Namespace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading manifest: %w", err)
	}
	return DecodeManifest(data)
}

// DecodeManifest decodes manifest data into a registry and namespace.
func DecodeManifest(data []byte) (*Registry, *model.Namespace, error) {
	var doc manifest
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decoding manifest: %w", err)
	}

	builtins := doc.Builtins
	if len(builtins) == 0 {
		builtins = DefaultBuiltins
	}
	reg := New(builtins)
	for _, mm := range doc.Modules {
		if mm.Name == "" {
			continue
		}
		m := &model.Module{Name: mm.Name, File: mm.File, Attrs: make(map[string]model.Value, len(mm.Attrs))}
		for k, v := range mm.Attrs {
			m.Attrs[k] = attrValue(v)
		}
		reg.Add(m)
	}

	ns := &model.Namespace{File: doc.File}
	for _, b := range doc.Namespace {
		ns.Bindings = append(ns.Bindings, model.Binding{Name: b.Name, Module: b.Module})
	}
	return reg, ns, nil
}

func attrValue(v any) model.Value {
	switch t := v.(type) {
	case string:
		return model.String(t)
	case []any:
		items := make([]string, len(t))
		for i, item := range t {
			items[i] = fmt.Sprint(item)
		}
		return model.Tuple(items...)
	default:
		return model.Value{Kind: model.OtherValue, Text: fmt.Sprint(t)}
	}
}
