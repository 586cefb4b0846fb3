package openspec

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// within joins rel to root and reports whether the result stays inside root.
func within(root, rel string) (string, bool) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", false
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, full)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func readString(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// scanChange builds a Change for dir, or returns false when dir is not a change.
func scanChange(dir, sourceID string, archived bool) (Change, bool) {
	if !isDir(dir) || !exists(filepath.Join(dir, ProposalFile)) {
		return Change{}, false
	}

	name := filepath.Base(dir)
	tasksPath := filepath.Join(dir, TasksFile)
	hasTasks := exists(tasksPath)

	var stats *TaskStats
	if hasTasks {
		if raw, ok := readString(tasksPath); ok {
			s := ParseTaskStats(raw)
			stats = &s
		}
	}

	status := ComputeStatus(hasTasks, stats, archived)
	return Change{
		ID:             sourceID + "/" + name,
		Name:           name,
		SourceID:       sourceID,
		Status:         status,
		HasProposal:    true,
		HasSpecs:       isDir(filepath.Join(dir, SpecsDir)),
		HasTasks:       hasTasks,
		HasDesign:      exists(filepath.Join(dir, DesignFile)),
		TaskStats:      stats,
		ReadyForReview: status == StatusDone,
	}, true
}

// ScanChanges lists the active and archived changes of the source rooted at root.
// Directories without a proposal are skipped.
func ScanChanges(root, sourceID string) []Change {
	changes := []Change{}
	changesPath := filepath.Join(root, ChangesDir)

	entries, err := os.ReadDir(changesPath)
	if err != nil {
		return changes
	}
	for _, entry := range entries {
		if entry.Name() == ArchiveDir {
			continue
		}
		if change, ok := scanChange(filepath.Join(changesPath, entry.Name()), sourceID, false); ok {
			changes = append(changes, change)
		}
	}

	archived, err := os.ReadDir(filepath.Join(changesPath, ArchiveDir))
	if err != nil {
		return changes
	}
	for _, entry := range archived {
		if change, ok := scanChange(filepath.Join(changesPath, ArchiveDir, entry.Name()), sourceID, true); ok {
			changes = append(changes, change)
		}
	}
	return changes
}

// findArchived returns the archive entry named name, or else the first one whose name ends
// with it (archived changes usually carry a date prefix).
func findArchived(archivePath, name string) (string, bool) {
	entries, err := os.ReadDir(archivePath)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.Name() == name {
			return filepath.Join(archivePath, entry.Name()), true
		}
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), name) {
			return filepath.Join(archivePath, entry.Name()), true
		}
	}
	return "", false
}

// collectSpecs reads every markdown file below dir, keyed by slash-separated relative path.
func collectSpecs(dir string) []SpecContent {
	specs := []SpecContent{}
	if !isDir(dir) {
		return specs
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		content, ok := readString(path)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		specs = append(specs, SpecContent{Path: filepath.ToSlash(rel), Content: content})
		return nil
	})
	return specs
}

// GetChangeDetail loads a change by name, looking at active changes first and then the archive.
func GetChangeDetail(root, sourceID, changeName string) (*ChangeDetail, bool) {
	if changeName == ArchiveDir || strings.ContainsAny(changeName, `/\`) {
		return nil, false
	}
	changesPath := filepath.Join(root, ChangesDir)

	dir, ok := within(changesPath, changeName)
	if !ok {
		return nil, false
	}
	archived := false
	if !exists(dir) {
		dir, ok = findArchived(filepath.Join(changesPath, ArchiveDir), changeName)
		if !ok {
			return nil, false
		}
		archived = true
	}

	proposal, ok := readString(filepath.Join(dir, ProposalFile))
	if !ok {
		return nil, false
	}

	detail := &ChangeDetail{
		ID:       sourceID + "/" + changeName,
		Name:     filepath.Base(dir),
		SourceID: sourceID,
		Archived: archived,
		Proposal: &proposal,
		Specs:    collectSpecs(filepath.Join(dir, SpecsDir)),
	}
	if design, ok := readString(filepath.Join(dir, DesignFile)); ok {
		detail.Design = &design
	}

	var stats *TaskStats
	if raw, ok := readString(filepath.Join(dir, TasksFile)); ok {
		detail.Tasks = &TasksContent{Raw: raw, Stats: ParseTaskStats(raw)}
		stats = &detail.Tasks.Stats
	}
	detail.Status = ComputeStatus(detail.Tasks != nil, stats, archived)
	return detail, true
}
