package openspec

import "strings"

const (
	checkedMarker   = "- [x]"
	uncheckedMarker = "- [ ]"
)

// ParseTaskStats counts literal checked and unchecked list markers.
func ParseTaskStats(content string) TaskStats {
	done := strings.Count(content, checkedMarker)
	todo := strings.Count(content, uncheckedMarker)
	return TaskStats{Total: done + todo, Done: done}
}

// ComputeStatus derives the lifecycle status of a change. A nil stats with hasTasks set means
// the task list exists but could not be read.
func ComputeStatus(hasTasks bool, stats *TaskStats, archived bool) Status {
	switch {
	case archived:
		return StatusArchived
	case !hasTasks, stats == nil:
		return StatusDraft
	case stats.Total == 0:
		// no checkboxes at all; Done requires total > 0
		return StatusDraft
	case stats.Done == 0:
		return StatusTodo
	case stats.Done == stats.Total:
		return StatusDone
	default:
		return StatusInProgress
	}
}
