package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source is the resolved runtime view of a SourceConfig.
type Source struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
}

// ValidationError is returned when a submitted source list is rejected outright.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("source %d: %s", e.Index, e.Reason)
}

// ResolvePath joins paths starting with ./ or ../ to baseDir and returns any other path unchanged.
func ResolvePath(path, baseDir string) string {
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return filepath.Join(baseDir, path)
	}
	return path
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Resolve turns configured sources into Source records, keeping input order and invalid entries.
func Resolve(sources []SourceConfig, baseDir string) []Source {
	resolved := make([]Source, 0, len(sources))
	for _, s := range sources {
		path := ResolvePath(s.Path, baseDir)
		resolved = append(resolved, Source{
			ID:    s.Name,
			Name:  s.Name,
			Path:  path,
			Valid: isDir(path),
		})
	}
	return resolved
}

// ValidateSources checks a submitted source list. Entries whose path is missing or not a
// directory are dropped and reported as warnings; malformed entries reject the whole list.
// Duplicate names are accepted.
func ValidateSources(sources []SourceConfig, baseDir string) ([]SourceConfig, []string, error) {
	for i, s := range sources {
		switch {
		case strings.TrimSpace(s.Name) == "":
			return nil, nil, &ValidationError{Index: i, Reason: "name is required"}
		case strings.TrimSpace(s.Path) == "":
			return nil, nil, &ValidationError{Index: i, Reason: fmt.Sprintf("path is required for '%s'", s.Name)}
		case strings.Contains(s.Name, "/"):
			return nil, nil, &ValidationError{Index: i, Reason: fmt.Sprintf("name '%s' must not contain '/'", s.Name)}
		}
	}

	valid := make([]SourceConfig, 0, len(sources))
	var warnings []string
	for _, s := range sources {
		path := ResolvePath(s.Path, baseDir)
		info, err := os.Stat(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Skipping '%s': path does not exist: %s", s.Name, s.Path))
			continue
		}
		if !info.IsDir() {
			warnings = append(warnings, fmt.Sprintf("Skipping '%s': path is not a directory: %s", s.Name, s.Path))
			continue
		}
		valid = append(valid, s)
	}
	return valid, warnings, nil
}
