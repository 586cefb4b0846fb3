package openspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// write creates root/rel with content, making parent directories.
func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func fixture(t *testing.T) string {
	root := t.TempDir()
	write(t, root, "changes/add-auth/proposal.md", "# Add auth")
	write(t, root, "changes/add-auth/tasks.md", "- [x] one\n- [ ] two\n")
	write(t, root, "changes/add-auth/design.md", "# Design")
	write(t, root, "changes/add-auth/specs/auth/spec.md", "auth delta")
	write(t, root, "changes/add-auth/specs/notes.txt", "ignored")

	write(t, root, "changes/draft-only/proposal.md", "# Draft")

	write(t, root, "changes/no-proposal/tasks.md", "- [x] done\n")
	write(t, root, "changes/no-proposal/design.md", "# Design")
	write(t, root, "changes/no-proposal/specs/x/spec.md", "x")

	write(t, root, "changes/README.md", "not a change")

	write(t, root, "changes/archive/2024-01-01-old-thing/proposal.md", "# Old")
	write(t, root, "changes/archive/2024-01-01-old-thing/tasks.md", "- [x] a\n- [x] b\n")
	write(t, root, "changes/archive/2024-02-01-no-proposal/tasks.md", "- [ ] a\n")
	return root
}

func byName(changes []Change) map[string]Change {
	m := make(map[string]Change, len(changes))
	for _, c := range changes {
		m[c.Name] = c
	}
	return m
}

func TestScanChanges(t *testing.T) {
	root := fixture(t)
	changes := byName(ScanChanges(root, "repo"))

	require.Len(t, changes, 3)
	assert.NotContains(t, changes, "no-proposal")
	assert.NotContains(t, changes, "2024-02-01-no-proposal")
	assert.NotContains(t, changes, "archive")

	auth := changes["add-auth"]
	assert.Equal(t, "repo/add-auth", auth.ID)
	assert.Equal(t, "repo", auth.SourceID)
	assert.Equal(t, StatusInProgress, auth.Status)
	assert.True(t, auth.HasProposal)
	assert.True(t, auth.HasTasks)
	assert.True(t, auth.HasDesign)
	assert.True(t, auth.HasSpecs)
	assert.Equal(t, &TaskStats{Total: 2, Done: 1}, auth.TaskStats)

	draft := changes["draft-only"]
	assert.Equal(t, StatusDraft, draft.Status)
	assert.False(t, draft.HasTasks)
	assert.Nil(t, draft.TaskStats)

	old := changes["2024-01-01-old-thing"]
	assert.Equal(t, StatusArchived, old.Status)
	assert.Equal(t, "repo/2024-01-01-old-thing", old.ID)
	assert.False(t, old.ReadyForReview)
}

func TestScanChangesReadyForReview(t *testing.T) {
	root := t.TempDir()
	write(t, root, "changes/finished/proposal.md", "p")
	write(t, root, "changes/finished/tasks.md", "- [x] a\n")

	changes := ScanChanges(root, "s")
	require.Len(t, changes, 1)
	assert.Equal(t, StatusDone, changes[0].Status)
	assert.True(t, changes[0].ReadyForReview)
}

func TestScanChangesMissingDirectory(t *testing.T) {
	changes := ScanChanges(t.TempDir(), "empty")
	assert.NotNil(t, changes)
	assert.Empty(t, changes)
}

func TestGetChangeDetailActive(t *testing.T) {
	root := fixture(t)

	detail, ok := GetChangeDetail(root, "repo", "add-auth")
	require.True(t, ok)
	assert.Equal(t, "repo/add-auth", detail.ID)
	assert.Equal(t, "add-auth", detail.Name)
	assert.False(t, detail.Archived)
	assert.Equal(t, StatusInProgress, detail.Status)
	require.NotNil(t, detail.Proposal)
	assert.Equal(t, "# Add auth", *detail.Proposal)
	require.NotNil(t, detail.Design)
	require.NotNil(t, detail.Tasks)
	assert.Equal(t, TaskStats{Total: 2, Done: 1}, detail.Tasks.Stats)
	assert.Equal(t, []SpecContent{{Path: "auth/spec.md", Content: "auth delta"}}, detail.Specs)
}

func TestGetChangeDetailArchived(t *testing.T) {
	root := fixture(t)

	for _, name := range []string{"old-thing", "2024-01-01-old-thing"} {
		t.Run(name, func(t *testing.T) {
			detail, ok := GetChangeDetail(root, "repo", name)
			require.True(t, ok)
			assert.True(t, detail.Archived)
			assert.Equal(t, StatusArchived, detail.Status)
			assert.Equal(t, "2024-01-01-old-thing", detail.Name)
			assert.Equal(t, "repo/"+name, detail.ID)
		})
	}
}

func TestGetChangeDetailPrefersExactArchiveMatch(t *testing.T) {
	root := t.TempDir()
	write(t, root, "changes/archive/2024-01-01-x-thing/proposal.md", "suffix")
	write(t, root, "changes/archive/x-thing/proposal.md", "exact")

	detail, ok := GetChangeDetail(root, "s", "x-thing")
	require.True(t, ok)
	assert.Equal(t, "exact", *detail.Proposal)
}

func TestGetChangeDetailNotFound(t *testing.T) {
	root := fixture(t)

	for _, name := range []string{"missing", "no-proposal", "archive", "..", "../changes", ""} {
		t.Run(name, func(t *testing.T) {
			_, ok := GetChangeDetail(root, "repo", name)
			assert.False(t, ok)
		})
	}
}
