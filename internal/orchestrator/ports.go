package orchestrator

import (
	"context"

	"github.com/awlondon/openclaw/internal/githost"
	"github.com/awlondon/openclaw/internal/plan"
)

// PlannerPort produces a task graph from an objective. Implemented by an
// external planning collaborator.
type PlannerPort interface {
	Plan(ctx context.Context, objective, constraints string) (plan.Graph, Usage, error)
}

// CoderPort produces a patch for one task. Implemented by an external
// coding collaborator.
type CoderPort interface {
	Code(ctx context.Context, objective string, task plan.Task) (PatchCommit, Usage, error)
}

// VerifierPort produces a verdict on a task's patch. Implemented by an
// external verification collaborator.
type VerifierPort interface {
	Verify(ctx context.Context, task plan.Task, patch PatchCommit) (VerifierVerdict, Usage, error)
}

// PolicyConfig is opaque evaluator configuration, loaded once per run.
type PolicyConfig map[string]any

// PolicyInput is everything the policy evaluator sees for one task.
type PolicyInput struct {
	Task        plan.Task
	Verdict     VerifierVerdict
	CIStatus    string
	DiffSummary string
	Budget      Budget
	Config      PolicyConfig
}

// PolicyPort is the external risk/policy evaluator. Its decision is
// authoritative and is obtained before any mutation for the task.
type PolicyPort interface {
	BuildConfig(ctx context.Context) (PolicyConfig, error)
	Evaluate(ctx context.Context, in PolicyInput) (PolicyDecision, error)
}

// HostPort is the hosting-API surface the orchestrator consumes.
// *githost.Client satisfies it; tests substitute a fake.
type HostPort interface {
	Owner() string
	CreateRepo(ctx context.Context, name, description string) error
	GetBranchHead(ctx context.Context, repo, branch string) (sha string, found bool, err error)
	CreateBranch(ctx context.Context, repo, branch, sha string) error
	GetFile(ctx context.Context, repo, branch, path string) (content, sha string, found bool, err error)
	PutFile(ctx context.Context, repo, branch, path, content, message, sha string) error
	ListOpenPullRequests(ctx context.Context, repo, head, base string) ([]githost.PullRequest, error)
	CreatePullRequest(ctx context.Context, repo, head, base, title, body string) (githost.PullRequest, error)
	GetPullRequest(ctx context.Context, repo string, number int) (githost.PullRequest, error)
	MergePullRequest(ctx context.Context, repo string, number int, message string) error
	ListCheckRuns(ctx context.Context, repo, sha string) ([]githost.CheckRun, error)
	ProtectBranch(ctx context.Context, repo, branch, checkContext string) error
	EnablePages(ctx context.Context, repo, branch string) error
}
