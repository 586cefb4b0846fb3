// Package openspec reads the changes/ and specs/ layout of a source directory and derives
// per-change lifecycle status. Everything here is computed from the filesystem on each call.
package openspec

// Artifact names inside a change directory.
const (
	ProposalFile = "proposal.md"
	TasksFile    = "tasks.md"
	DesignFile   = "design.md"
	SpecsDir     = "specs"
	ChangesDir   = "changes"
	ArchiveDir   = "archive"
)

// Status is the lifecycle state of a change.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// TaskStats counts checkbox items in a task list.
type TaskStats struct {
	Total int `json:"total"`
	Done  int `json:"done"`
}

// Change is a change directory that has a proposal.
type Change struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	SourceID       string     `json:"sourceId"`
	Status         Status     `json:"status"`
	HasProposal    bool       `json:"hasProposal"`
	HasSpecs       bool       `json:"hasSpecs"`
	HasTasks       bool       `json:"hasTasks"`
	HasDesign      bool       `json:"hasDesign"`
	TaskStats      *TaskStats `json:"taskStats"`
	ReadyForReview bool       `json:"readyForReview"`
}

// SpecContent is one markdown file below a change's specs/ directory.
type SpecContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// TasksContent is the raw task list and its counts.
type TasksContent struct {
	Raw   string    `json:"raw"`
	Stats TaskStats `json:"stats"`
}

// ChangeDetail carries the artifact contents of a change.
type ChangeDetail struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	SourceID string        `json:"sourceId"`
	Status   Status        `json:"status"`
	Archived bool          `json:"archived"`
	Proposal *string       `json:"proposal"`
	Design   *string       `json:"design"`
	Specs    []SpecContent `json:"specs"`
	Tasks    *TasksContent `json:"tasks"`
}

// Spec is a canonical spec document.
type Spec struct {
	ID       string `json:"id"`
	SourceID string `json:"sourceId"`
	Path     string `json:"path"`
}

// SpecDetail is a spec with its content.
type SpecDetail struct {
	ID       string `json:"id"`
	SourceID string `json:"sourceId"`
	Path     string `json:"path"`
	Content  string `json:"content"`
}
