package orchestrator

import (
	"context"
	"fmt"

	"github.com/awlondon/openclaw/internal/plan"
)

// StubCoder produces the fixed documentation patch used by pre-specified
// runs: a task note under tasks/ and a README link to it, on a branch
// derived from the task id.
type StubCoder struct{}

// BranchForTask is the deterministic branch name for a task.
func BranchForTask(taskID string) string {
	return "feature/" + taskID
}

// Code implements CoderPort with a documentation stub; it consumes no
// tokens.
func (StubCoder) Code(_ context.Context, objective string, task plan.Task) (PatchCommit, Usage, error) {
	notePath := fmt.Sprintf("tasks/%s.md", task.ID)
	note := fmt.Sprintf("# %s\n\n%s\n\nPart of: %s\n", task.ID, task.Description, objective)
	readmeLink := fmt.Sprintf("\n- [%s](%s): %s\n", task.ID, notePath, task.Description)

	return PatchCommit{
		Branch: BranchForTask(task.ID),
		Files: []FileChange{
			{
				Path:    notePath,
				Content: note,
				Message: fmt.Sprintf("docs: describe %s", task.ID),
			},
			{
				Path:    "README.md",
				Content: readmeLink,
				Message: fmt.Sprintf("docs: link %s notes", task.ID),
				Append:  true,
			},
		},
		Title: fmt.Sprintf("%s: %s", task.ID, task.Description),
		Body:  fmt.Sprintf("Automated change for task %s.\n\n%s", task.ID, task.Description),
	}, Usage{}, nil
}
