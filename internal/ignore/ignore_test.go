package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Empty(t, s.Fragments())
	assert.True(t, s.SkipDir("a/.git"))
	assert.False(t, s.Excluded("main.go"))
}

func TestLoad_CommentsAndBlanks(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	content := "# generated code\n\nvendor/\n   \n  dist  \n#build/\n.env\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	s, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor/", "dist", ".env"}, s.Fragments())
}

func TestLoad_ReadError(t *testing.T) {
	// A directory where a file is expected cannot be read.
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestExcluded_SubstringSemantics(t *testing.T) {
	s := New("env", "vendor/", "Secret")

	tests := []struct {
		path string
		want bool
	}{
		{"environment/setup.go", true},
		{"pkg/vendor/lib.go", true},
		{"vendor.go", false},
		{"secret.txt", false},
		{"config/Secret.yml", true},
		{"main.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Excluded(filepath.FromSlash(tt.path)))
		})
	}
}

func TestExcluded_MatchesAnyFragment(t *testing.T) {
	frags := []string{"build", "gen/", ".min."}
	s := New(frags...)
	paths := []string{
		"build/out.js", "a/gen/x.go", "web/app.min.js", "cmd/main.go", "generate.go", "rebuild.sh",
	}
	for _, p := range paths {
		want := false
		for _, f := range frags {
			if contains(p, f) {
				want = true
			}
		}
		assert.Equal(t, want, s.Excluded(p), p)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestExcluded_EntryWithSubstringOfLongerName(t *testing.T) {
	s := New("test")
	assert.True(t, s.Excluded("internal/latest/x.go"))
}

func TestSkipDir(t *testing.T) {
	s := New("vendor/", "third_party")

	assert.True(t, s.SkipDir("vendor"), "trailing-slash fragment prunes the directory")
	assert.True(t, s.SkipDir("a/vendor"))
	assert.True(t, s.SkipDir("x/third_party"))
	assert.True(t, s.SkipDir("pkg/node_modules"))
	assert.True(t, s.SkipDir("__pycache__"))
	assert.False(t, s.SkipDir("vendors_docs"))
	assert.False(t, s.SkipDir("internal"))
}

func TestSkipDir_BuiltinsAreBasenameOnly(t *testing.T) {
	s := New()
	assert.True(t, s.SkipDir("a/b/.git"))
	assert.False(t, s.SkipDir("a/.github"))
}

func TestNew_DropsEmptyFragments(t *testing.T) {
	s := New("", "x")
	assert.Equal(t, []string{"x"}, s.Fragments())
	assert.False(t, s.Excluded("main.go"))
}

func TestZeroValueSpec(t *testing.T) {
	var s Spec
	assert.False(t, s.Excluded("anything"))
	assert.True(t, s.SkipDir("node_modules"))
}

func TestDefaultFile(t *testing.T) {
	frags, err := Parse([]byte(DefaultFile()))
	require.NoError(t, err)
	assert.Equal(t, DefaultFragments, frags)
}
