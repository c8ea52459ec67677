package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Python is the registered Python language.
var Python = &Language{
	Name:       "python",
	Extensions: []string{".py"},
	lang:       python.GetLanguage(),
}

func init() {
	Languages[Python.Name] = Python
}

var pythonEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\'`, `'`,
	`\"`, `"`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
)

// PythonStringValue returns the contents of a plain Python string literal
// node. Byte strings, f-strings and implicitly concatenated strings are
// rejected.
func PythonStringValue(node *sitter.Node, source []byte) (string, bool) {
	if node == nil || node.Type() != "string" {
		return "", false
	}
	text := NodeText(node, source)

	i := strings.IndexAny(text, `'"`)
	if i < 0 {
		return "", false
	}
	prefix := strings.ToLower(text[:i])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}
	body := text[i:]

	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	default:
		quote = body[:1]
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false
	}
	inner := body[len(quote) : len(body)-len(quote)]
	if strings.Contains(prefix, "r") {
		return inner, true
	}
	return pythonEscapes.Replace(inner), true
}

// PythonDottedName returns the text of a dotted_name node with any
// whitespace between its parts removed.
func PythonDottedName(node *sitter.Node, source []byte) string {
	return strings.Join(strings.Fields(NodeText(node, source)), "")
}
