package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".py", "python"},
		{".pyc", ""},
		{".go", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ForExtension(tt.ext))
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	py, ok := Languages["python"]
	require.True(t, ok, "python language not registered")
	assert.NotNil(t, py.GetLanguage())
}

func TestNewParser(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, Python.NewParser())
}

func TestPythonStringValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src    string
		want   string
		wantOK bool
	}{
		{`v = "1.2.3"`, "1.2.3", true},
		{`v = '2.0'`, "2.0", true},
		{`v = """3.0"""`, "3.0", true},
		{`v = r'a\b'`, `a\b`, true},
		{`v = 'it\'s'`, "it's", true},
		{`v = b"1.0"`, "", false},
		{`v = f"{x}"`, "", false},
		{`v = 5`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			source := []byte(tt.src + "\n")
			tree, err := Python.NewParser().ParseCtx(context.Background(), nil, source)
			require.NoError(t, err)
			defer tree.Close()

			// module > expression_statement > assignment
			assign := tree.RootNode().NamedChild(0).NamedChild(0)
			got, ok := PythonStringValue(assign.ChildByFieldName("right"), source)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
