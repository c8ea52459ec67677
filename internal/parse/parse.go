// Package parse extracts imports and module-level bindings from Python
// source using tree-sitter.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/provenance/internal/lang"
	"github.com/phobologic/provenance/internal/model"
)

// ImportedName is one name listed in a from-import.
type ImportedName struct {
	Name  string
	Alias string
}

// Bound returns the name the import binds in the importing namespace.
func (n ImportedName) Bound() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Import is a single import statement target.
//
//	import a.b as x        => Module "a.b", Alias "x"
//	from ..a import b as c => Module "a", Level 2, Names [{b c}]
//	from a import *        => Module "a", Star
type Import struct {
	Module string
	Level  int
	Alias  string
	From   bool
	Names  []ImportedName
	Star   bool
	Line   int
}

// Result holds what a module binds at its top level.
type Result struct {
	Imports     []Import
	Assignments map[string]model.Value
	Definitions []string
}

// compound lists statements whose bodies run when the module is imported.
var compound = map[string]struct{}{
	"if_statement":         {},
	"elif_clause":          {},
	"else_clause":          {},
	"try_statement":        {},
	"except_clause":        {},
	"except_group_clause":  {},
	"finally_clause":       {},
	"with_statement":       {},
	"for_statement":        {},
	"while_statement":      {},
	"block":                {},
	"decorated_definition": {},
}

// Module parses Python source and returns its imports and top-level
// bindings. Function and class bodies are not descended into.
// The parser must be created for Python.
func Module(parser *sitter.Parser, source []byte) (*Result, error) {
	res := &Result{Assignments: make(map[string]model.Value)}
	if len(source) == 0 {
		return res, nil
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	walk(tree.RootNode(), source, res)
	return res, nil
}

func walk(node *sitter.Node, source []byte, res *Result) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			res.Imports = append(res.Imports, plainImports(child, source)...)
		case "import_from_statement":
			res.Imports = append(res.Imports, fromImport(child, source))
		case "future_import_statement":
			res.Imports = append(res.Imports, Import{
				Module: "__future__",
				From:   true,
				Line:   line(child),
			})
		case "expression_statement":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if a := child.NamedChild(j); a.Type() == "assignment" {
					assignment(a, source, res)
				}
			}
		case "function_definition", "class_definition":
			if name := child.ChildByFieldName("name"); name != nil {
				res.Definitions = append(res.Definitions, lang.NodeText(name, source))
			}
		default:
			if _, ok := compound[child.Type()]; ok {
				walk(child, source, res)
			}
		}
	}
}

func plainImports(node *sitter.Node, source []byte) []Import {
	var out []Import
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		name, alias := importTarget(child, source)
		if name == "" {
			continue
		}
		out = append(out, Import{Module: name, Alias: alias, Line: line(node)})
	}
	return out
}

func fromImport(node *sitter.Node, source []byte) Import {
	imp := Import{From: true, Line: line(node)}

	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode != nil {
		switch moduleNode.Type() {
		case "relative_import":
			for i := 0; i < int(moduleNode.NamedChildCount()); i++ {
				part := moduleNode.NamedChild(i)
				switch part.Type() {
				case "import_prefix":
					imp.Level = strings.Count(lang.NodeText(part, source), ".")
				case "dotted_name":
					imp.Module = lang.PythonDottedName(part, source)
				}
			}
		default:
			imp.Module = lang.PythonDottedName(moduleNode, source)
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if moduleNode != nil && child.Equal(moduleNode) {
			continue
		}
		if child.Type() == "wildcard_import" {
			imp.Star = true
			continue
		}
		name, alias := importTarget(child, source)
		if name == "" {
			continue
		}
		imp.Names = append(imp.Names, ImportedName{Name: name, Alias: alias})
	}
	return imp
}

func importTarget(node *sitter.Node, source []byte) (name, alias string) {
	switch node.Type() {
	case "dotted_name":
		return lang.PythonDottedName(node, source), ""
	case "aliased_import":
		n := node.ChildByFieldName("name")
		a := node.ChildByFieldName("alias")
		if n == nil {
			return "", ""
		}
		if a != nil {
			alias = lang.NodeText(a, source)
		}
		return lang.PythonDottedName(n, source), alias
	}
	return "", ""
}

// assignment records NAME = value, including chained assignments.
func assignment(node *sitter.Node, source []byte, res *Result) {
	var targets []string
	for node != nil && node.Type() == "assignment" {
		if left := node.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			targets = append(targets, lang.NodeText(left, source))
		}
		right := node.ChildByFieldName("right")
		if right == nil || right.Type() != "assignment" {
			val := literal(right, source)
			for _, t := range targets {
				res.Assignments[t] = val
			}
			return
		}
		node = right
	}
}

func literal(node *sitter.Node, source []byte) model.Value {
	if node == nil {
		return model.Value{Kind: model.OtherValue}
	}
	switch node.Type() {
	case "string":
		if s, ok := lang.PythonStringValue(node, source); ok {
			return model.String(s)
		}
	case "tuple", "expression_list":
		var items []string
		for i := 0; i < int(node.NamedChildCount()); i++ {
			el := node.NamedChild(i)
			if el.Type() == "comment" {
				continue
			}
			if s, ok := lang.PythonStringValue(el, source); ok {
				items = append(items, s)
				continue
			}
			items = append(items, lang.NodeText(el, source))
		}
		return model.Tuple(items...)
	case "parenthesized_expression":
		if node.NamedChildCount() == 1 {
			return literal(node.NamedChild(0), source)
		}
	}
	return model.Value{Kind: model.OtherValue, Text: lang.NodeText(node, source)}
}

func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}
