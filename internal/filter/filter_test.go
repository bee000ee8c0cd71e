package filter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// GlobFilter
// ---------------------------------------------------------------------------

func TestGlobFilter(t *testing.T) {
	root := t.TempDir()

	f, err := NewGlobFilter(root, []string{".git", "*.log", "./bin", "docs/generated", "vendor/", ""})
	require.NoError(t, err)
	assert.Equal(t, 5, f.Len())

	tests := []struct {
		name string
		rel  string
		want bool
	}{
		{"vcs dir", ".git", true},
		{"inside vcs dir", ".git/objects/ab", true},
		{"nested vcs dir", "sub/.git/HEAD", true},
		{"component glob", "logs/app.log", true},
		{"anchored dir", "bin", true},
		{"inside anchored dir", "bin/server", true},
		{"anchored dir elsewhere", "cmd/bin/tool", false},
		{"anchored nested", "docs/generated/api.md", true},
		{"anchored sibling", "docs/guide.md", false},
		{"trailing slash rule", "third_party/vendor/x.go", true},
		{"plain source", "main.go", false},
		{"workspace root", ".", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := f.Excludes(filepath.Join(root, filepath.FromSlash(tt.rel)))
			assert.Equal(t, tt.want, got)

			if tt.want {
				assert.Contains(t, reason, "ignore rule")
			}
		})
	}
}

func TestGlobFilter_AbsoluteRule(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	f, err := NewGlobFilter(root, []string{other})
	require.NoError(t, err)

	excluded, _ := f.Excludes(filepath.Join(other, "a", "b.go"))
	assert.True(t, excluded)

	excluded, _ = f.Excludes(filepath.Join(root, "a.go"))
	assert.False(t, excluded)
}

func TestGlobFilter_OutsideRoot(t *testing.T) {
	root := t.TempDir()

	f, err := NewGlobFilter(root, []string{"*.go"})
	require.NoError(t, err)

	excluded, _ := f.Excludes(filepath.Join(t.TempDir(), "main.go"))
	assert.False(t, excluded, "relative rules only apply inside the root")
}

func TestGlobFilter_InvalidRule(t *testing.T) {
	_, err := NewGlobFilter(t.TempDir(), []string{"["})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling ignore rule")
}

// ---------------------------------------------------------------------------
// PrefixFilter
// ---------------------------------------------------------------------------

func TestPrefixFilter(t *testing.T) {
	root := t.TempDir()
	abs := t.TempDir()

	f := NewPrefixFilter(root, []string{"target", abs, "  "})

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"relative prefix itself", filepath.Join(root, "target"), true},
		{"below relative prefix", filepath.Join(root, "target", "debug", "x"), true},
		{"similar name", filepath.Join(root, "targets", "x"), false},
		{"below absolute prefix", filepath.Join(abs, "x"), true},
		{"unrelated", filepath.Join(root, "src", "main.go"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := f.Excludes(tt.path)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// HiddenFilter
// ---------------------------------------------------------------------------

func TestHiddenFilter(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".config", "project")
	f := NewHiddenFilter([]string{root})

	tests := []struct {
		name string
		rel  string
		want bool
	}{
		{"hidden file", ".env", true},
		{"hidden dir", ".cache/x", true},
		{"nested hidden", "src/.idea/workspace.xml", true},
		{"visible", "src/main.go", false},
		{"root itself", ".", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := f.Excludes(filepath.Join(root, filepath.FromSlash(tt.rel)))
			assert.Equal(t, tt.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// BackupFilter
// ---------------------------------------------------------------------------

func TestIsEditorArtefact(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"main.go~", true},
		{".main.go.swp", true},
		{"main.go.swo", true},
		{"main.go.swx", true},
		{"4913", true},
		{"#main.go#", true},
		{".#main.go", true},
		{"main.go", false},
		{"#notes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEditorArtefact(tt.name))
		})
	}
}

// ---------------------------------------------------------------------------
// Chain / Build
// ---------------------------------------------------------------------------

func TestChain_FirstMatchWins(t *testing.T) {
	c := NewChain(
		Func(func(p string) bool { return filepath.Base(p) == "a" }),
		nil,
		BackupFilter{},
	)
	assert.Equal(t, 2, c.Len())

	excluded, reason := c.Excludes("/x/a")
	assert.True(t, excluded)
	assert.Equal(t, "excluded by predicate", reason)

	excluded, reason = c.Excludes("/x/b~")
	assert.True(t, excluded)
	assert.Equal(t, "editor backup or swap file", reason)

	excluded, _ = c.Excludes("/x/b")
	assert.False(t, excluded)
}

func TestBuild_Defaults(t *testing.T) {
	root := t.TempDir()

	c, err := Build(Options{Root: root, WatchRoots: []string{root}})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	for _, rel := range []string{".git/index", "bin/app", ".env", "main.go~"} {
		excluded, _ := c.Excludes(filepath.Join(root, filepath.FromSlash(rel)))
		assert.True(t, excluded, rel)
	}

	excluded, _ := c.Excludes(filepath.Join(root, "cmd", "app", "main.go"))
	assert.False(t, excluded)
}

func TestBuild_EmptyRulesDisableDefaults(t *testing.T) {
	root := t.TempDir()

	c, err := Build(Options{
		Root:        root,
		WatchRoots:  []string{root},
		Rules:       []string{},
		Excludes:    []string{"gen"},
		KeepHidden:  true,
		KeepBackups: true,
	})
	require.NoError(t, err)

	excluded, _ := c.Excludes(filepath.Join(root, "bin", "app"))
	assert.False(t, excluded)

	excluded, _ = c.Excludes(filepath.Join(root, ".env"))
	assert.False(t, excluded)

	excluded, _ = c.Excludes(filepath.Join(root, "gen", "types.go"))
	assert.True(t, excluded)
}

func TestBuild_InvalidRule(t *testing.T) {
	_, err := Build(Options{Root: t.TempDir(), Rules: []string{"["}})
	require.Error(t, err)
}
