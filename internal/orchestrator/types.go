package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/awlondon/openclaw/internal/githost"
	"github.com/awlondon/openclaw/internal/plan"
)

// ErrValidation indicates a request was rejected before any external call
// was made.
var ErrValidation = errors.New("invalid request")

// MaxSpecifiedTasks is the admission-control cap on caller-supplied task
// lists. Requests over the cap are rejected with zero hosting-API calls.
const MaxSpecifiedTasks = 25

// RiskLevel grades a task's change risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PolicyDecision is the authoritative verdict of the external policy
// evaluator. The orchestrator never overrides it.
type PolicyDecision struct {
	AllowMerge bool      `json:"allow_merge"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Reasons    []string  `json:"reasons,omitempty"`
}

// FileChange is one file mutation inside a patch. When Append is set the
// content is appended to the file's current content instead of replacing it.
type FileChange struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Message string `json:"message"`
	Append  bool   `json:"append,omitempty"`
}

// PatchCommit is the change an external coder produced for one task: the
// branch to apply it on, the file changes, and the pull request metadata.
// The branch is a deterministic function of the task id.
type PatchCommit struct {
	Branch string       `json:"branch"`
	Files  []FileChange `json:"files"`
	Title  string       `json:"title"`
	Body   string       `json:"body"`
}

// DiffSummary renders a short description of the patch for the policy
// evaluator.
func (p PatchCommit) DiffSummary() string {
	if len(p.Files) == 0 {
		return "no file changes"
	}
	parts := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		verb := "write"
		if f.Append {
			verb = "append"
		}
		parts = append(parts, fmt.Sprintf("%s %s (%d bytes)", verb, f.Path, len(f.Content)))
	}
	return strings.Join(parts, "; ")
}

// VerifierVerdict is the external verifier's report on a patch.
type VerifierVerdict struct {
	Status    string       `json:"status"`
	TestFiles []FileChange `json:"test_files,omitempty"`
}

// Usage is one collaborator call's token consumption.
type Usage struct {
	Tokens int64
}

// Budget is cumulative, advisory telemetry for a batch. It is surfaced in
// the report and never gates execution.
type Budget struct {
	TokensUsed int64 `json:"tokens_used"`
	APICalls   int64 `json:"api_calls"`
}

// MergeOutcome is the terminal result of a merge watch. CI never going
// green is an expected, reportable outcome, not an error.
type MergeOutcome struct {
	Merged bool   `json:"merged"`
	Reason string `json:"reason,omitempty"`
}

// TaskStatus is the terminal status of one task in a batch.
type TaskStatus string

const (
	// StatusPROpened means the task's mutations were applied and a pull
	// request is open (or was already open from a previous run).
	StatusPROpened TaskStatus = "pr_opened"

	// StatusBlockedByPolicy means the policy evaluator vetoed the task
	// before any mutation.
	StatusBlockedByPolicy TaskStatus = "blocked_by_policy"

	// StatusFailed means a hosting-API or collaborator failure was isolated
	// to this task; the rest of the batch continued.
	StatusFailed TaskStatus = "failed"
)

// TaskResult records one task's outcome. Created once, immutable, appended
// to the batch report.
type TaskResult struct {
	TaskID         string          `json:"task_id"`
	Status         TaskStatus      `json:"status"`
	Branch         string          `json:"branch,omitempty"`
	PRNumber       int             `json:"pr_number,omitempty"`
	PRURL          string          `json:"pr_url,omitempty"`
	VerifierStatus string          `json:"verifier_status,omitempty"`
	Policy         *PolicyDecision `json:"policy,omitempty"`
	Merge          *MergeOutcome   `json:"merge,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Execution holds per-run execution options.
type Execution struct {
	AutoMerge   bool `json:"auto_merge"`
	EnablePages bool `json:"enable_pages"`
}

// BatchReport is the full response of one orchestration run.
type BatchReport struct {
	Repo      string                `json:"repo"`
	LiveURL   string                `json:"live_url,omitempty"`
	TaskOrder []string              `json:"task_graph"`
	Plan      []plan.Task           `json:"plan,omitempty"`
	Results   []TaskResult          `json:"tasks"`
	Budget    Budget                `json:"budget"`
	PRs       []githost.PullRequest `json:"prs,omitempty"`
}
