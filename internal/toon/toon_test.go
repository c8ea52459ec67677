package toon

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/phobologic/provenance/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/main.py", "src/main.py"},
		{"dotted name", "Foo.__init__", "Foo.__init__"},
		{"requirement", "widgets==2.0", "widgets==2.0"},
		{"unknown version", "<unknown>", "<unknown>"},
		{"git url", "git@host:exp.git", `"git@host:exp.git"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, encodeValue(tt.in))
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	clean := false
	rec := &model.Record{
		ID:        uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		BaseDir:   "/exp",
		Main:      &model.Source{Filename: "/exp/run.py", Digest: "aaa"},
		Sources: []model.Source{
			{Filename: "/exp/lib/util.py", Digest: "bbb", Repo: "git@host:exp.git", Commit: "c1", Dirty: &clean},
			{Filename: "/exp/run.py", Digest: "aaa"},
		},
		Dependencies: []model.PackageDependency{
			{Name: "numpy", Version: "1.26.4"},
			{Name: "widgets"},
		},
		Repositories: []model.Repository{{URL: "git@host:exp.git", Commit: "c1"}},
	}

	got := Encode(rec, false)

	want := []string{
		"id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		`created: "2024-01-02T03:04:05Z"`,
		"base: /exp",
		"main: /exp/run.py",
		"sources[2]{path,digest,repo,commit,dirty}:",
		`  /exp/lib/util.py,bbb,"git@host:exp.git",c1,false`,
		`  /exp/run.py,aaa,"","",null`,
		"dependencies[2]{name,version}:",
		"  numpy,1.26.4",
		"  widgets,<unknown>",
		"repositories[1]{url,commit,dirty}:",
		`  "git@host:exp.git",c1,false`,
	}
	assert.Equal(t, want, strings.Split(got, "\n"))
}

func TestEncodeRelative(t *testing.T) {
	t.Parallel()

	rec := &model.Record{
		BaseDir: "/exp",
		Main:    &model.Source{Filename: "/exp/run.py", Digest: "aaa"},
		Sources: []model.Source{{Filename: "/exp/lib/util.py", Digest: "bbb"}},
	}

	got := Encode(rec, true)
	assert.Contains(t, got, "main: run.py")
	assert.Contains(t, got, "  lib/util.py,bbb,")
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(&model.Record{BaseDir: "/exp"}, false)
	assert.Contains(t, got, "main: null")
	assert.Contains(t, got, "sources[0]{path,digest,repo,commit,dirty}:")
	assert.Contains(t, got, "dependencies[0]{name,version}:")
	assert.NotContains(t, got, "repositories", "repositories section should be omitted")
}
