package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRelativeToConfigDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "specs-repo"), 0755))

	abs := t.TempDir()
	sources := Resolve([]SourceConfig{
		{Name: "rel", Path: "./specs-repo"},
		{Name: "abs", Path: abs},
		{Name: "missing", Path: "./nope"},
	}, base)

	require.Len(t, sources, 3)
	assert.Equal(t, Source{ID: "rel", Name: "rel", Path: filepath.Join(base, "specs-repo"), Valid: true}, sources[0])
	assert.Equal(t, Source{ID: "abs", Name: "abs", Path: abs, Valid: true}, sources[1])
	assert.Equal(t, "missing", sources[2].ID)
	assert.False(t, sources[2].Valid)
}

func TestResolveParentRelative(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "config")
	require.NoError(t, os.Mkdir(base, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "repo"), 0755))

	sources := Resolve([]SourceConfig{{Name: "up", Path: "../repo"}}, base)
	assert.Equal(t, filepath.Join(root, "repo"), sources[0].Path)
	assert.True(t, sources[0].Valid)
}

func TestResolveFileIsInvalid(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "file.md"), "x")

	sources := Resolve([]SourceConfig{{Name: "f", Path: "./file.md"}}, base)
	assert.False(t, sources[0].Valid)
}

func TestResolveKeepsDuplicates(t *testing.T) {
	base := t.TempDir()
	sources := Resolve([]SourceConfig{{Name: "dup", Path: "./a"}, {Name: "dup", Path: "./b"}}, base)
	require.Len(t, sources, 2)
	assert.Equal(t, filepath.Join(base, "a"), sources[0].Path)
	assert.Equal(t, filepath.Join(base, "b"), sources[1].Path)
}

func TestValidateSources(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "ok"), 0755))
	writeFile(t, filepath.Join(base, "file"), "x")

	valid, warnings, err := ValidateSources([]SourceConfig{
		{Name: "ok", Path: "./ok"},
		{Name: "gone", Path: "./gone"},
		{Name: "file", Path: "./file"},
	}, base)
	require.NoError(t, err)
	assert.Equal(t, []SourceConfig{{Name: "ok", Path: "./ok"}}, valid)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "does not exist")
	assert.Contains(t, warnings[1], "not a directory")
}

func TestValidateSourcesRejectsMalformed(t *testing.T) {
	tests := map[string]SourceConfig{
		"empty name": {Name: " ", Path: "./x"},
		"empty path": {Name: "x", Path: ""},
		"slash name": {Name: "a/b", Path: "./x"},
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := ValidateSources([]SourceConfig{src}, t.TempDir())
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestManagerLoadSources(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "repo"), 0755))
	path := filepath.Join(base, "openspec-ui.json")
	writeFile(t, path, `{"sources":[{"name":"repo","path":"./repo"},{"name":"gone","path":"./gone"}]}`)

	m := NewManager(path, nil)
	assert.Equal(t, base, m.Dir())

	sources, err := m.LoadSources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.True(t, sources[0].Valid)
	assert.False(t, sources[1].Valid)
}

func TestManagerUpdateAppliesSavedSources(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "repo"), 0755))
	path := filepath.Join(base, "openspec-ui.json")
	writeFile(t, path, `{"sources":[],"port":4000}`)

	m := NewManager(path, nil)
	var applied []Source
	require.NoError(t, m.Update([]SourceConfig{{Name: "repo", Path: "./repo"}}, func(s []Source) {
		applied = s
	}))
	require.Len(t, applied, 1)
	assert.Equal(t, "repo", applied[0].ID)
	assert.True(t, applied[0].Valid)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(4000), cfg.Port)
}

func TestManagerUpdateFailureSkipsApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openspec-ui.json")
	writeFile(t, path, `{broken`)

	m := NewManager(path, nil)
	called := false
	err := m.Update([]SourceConfig{{Name: "x", Path: "/x"}}, func([]Source) { called = true })
	require.Error(t, err)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.False(t, called)

	err = m.Reload(func([]Source) { called = true })
	require.Error(t, err)
	assert.False(t, called)
}

func TestManagerConcurrentUpdatesApplyInFileOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openspec-ui.json")
	writeFile(t, path, `{"sources":[]}`)
	m := NewManager(path, nil)

	// apply runs under the manager lock, so last needs no extra guard
	var last string
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				name := fmt.Sprintf("s%d-%d", i, j)
				assert.NoError(t, m.Update([]SourceConfig{{Name: name, Path: "/" + name}}, func(s []Source) {
					last = s[0].ID
				}))
			}
		}(i)
	}
	wg.Wait()

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, cfg.Sources[0].Name, last)
}
