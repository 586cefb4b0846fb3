package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadConfigDefaultsPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openspec-ui.json")
	writeFile(t, path, `{"sources":[{"name":"a","path":"./a"}]}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, []SourceConfig{{Name: "a", Path: "./a"}}, cfg.Sources)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.json"))
	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	tests := map[string]string{
		"not json":        `{sources: nope`,
		"missing sources": `{"port": 4000}`,
		"port overflow":   `{"sources": [], "port": 70000}`,
		"wrong type":      `{"sources": "abc"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.json")
			writeFile(t, path, content)
			_, err := LoadConfig(path)
			var parseErr *ParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	for _, name := range []string{"openspec-ui.json", "openspec-ui.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := &Config{
				Sources: []SourceConfig{{Name: "one", Path: "./one"}, {Name: "two", Path: "/abs/two"}},
				Port:    4321,
			}
			require.NoError(t, SaveConfig(path, cfg))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestSaveSourcesPreservesPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openspec-ui.json")
	writeFile(t, path, `{"sources":[{"name":"old","path":"./old"}],"port":8123}`)

	require.NoError(t, SaveSources(path, []SourceConfig{{Name: "new", Path: "./new"}}))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(8123), cfg.Port)
	assert.Equal(t, []SourceConfig{{Name: "new", Path: "./new"}}, cfg.Sources)
}

func TestSaveSourcesEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openspec-ui.json")
	writeFile(t, path, `{"sources":[{"name":"old","path":"./old"}]}`)

	require.NoError(t, SaveSources(path, nil))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestSaveSourcesFailsOnBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openspec-ui.json")
	writeFile(t, path, `not json`)

	err := SaveSources(path, []SourceConfig{{Name: "x", Path: "./x"}})
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(data))
}
