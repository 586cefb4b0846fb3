package openspec

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidID is returned for composite ids that are not "<sourceId>/<name>".
var ErrInvalidID = errors.New("id must be <sourceId>/<name>")

var reservedNames = map[string]bool{
	ProposalFile: true,
	TasksFile:    true,
	DesignFile:   true,
	ChangesDir:   true,
}

// SplitID splits a composite id on its first slash.
func SplitID(id string) (string, string, error) {
	sourceID, rest, ok := strings.Cut(id, "/")
	if !ok || sourceID == "" || rest == "" {
		return "", "", ErrInvalidID
	}
	return sourceID, rest, nil
}

// specName strips the markdown extension and a trailing spec.md from a relative spec path.
func specName(rel string) string {
	rel = strings.TrimSuffix(rel, "/spec.md")
	return strings.TrimSuffix(rel, ".md")
}

// ScanSpecs lists root-level markdown documents and every markdown file under specs/.
func ScanSpecs(root, sourceID string) []Spec {
	specs := []Spec{}

	entries, err := os.ReadDir(root)
	if err == nil {
		for _, entry := range entries {
			name := entry.Name()
			if filepath.Ext(name) != ".md" || reservedNames[name] || !isFile(filepath.Join(root, name)) {
				continue
			}
			specs = append(specs, Spec{
				ID:       sourceID + "/" + specName(name),
				SourceID: sourceID,
				Path:     name,
			})
		}
	}

	specsPath := filepath.Join(root, SpecsDir)
	if !isDir(specsPath) {
		return specs
	}
	_ = filepath.WalkDir(specsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		rel, err := filepath.Rel(specsPath, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		specs = append(specs, Spec{
			ID:       sourceID + "/" + specName(rel),
			SourceID: sourceID,
			Path:     rel,
		})
		return nil
	})
	return specs
}

// GetSpecDetail reads specPath from the source root, falling back to specs/.
func GetSpecDetail(root, sourceID, specPath string) (*SpecDetail, bool) {
	var full string
	for _, base := range []string{root, filepath.Join(root, SpecsDir)} {
		p, ok := within(base, specPath)
		if ok && isFile(p) {
			full = p
			break
		}
	}
	if full == "" {
		return nil, false
	}

	content, ok := readString(full)
	if !ok {
		return nil, false
	}
	return &SpecDetail{
		ID:       sourceID + "/" + specName(specPath),
		SourceID: sourceID,
		Path:     specPath,
		Content:  content,
	}, true
}

// FindSpec resolves a spec name as <name>/spec.md, <name>.md and finally <name>.
func FindSpec(root, sourceID, name string) (*SpecDetail, bool) {
	for _, candidate := range []string{name + "/spec.md", name + ".md", name} {
		if detail, ok := GetSpecDetail(root, sourceID, candidate); ok {
			return detail, true
		}
	}
	return nil, false
}
