package orchestrator

import (
	"context"
	"sync/atomic"

	"github.com/awlondon/openclaw/internal/githost"
)

// countingHost decorates a HostPort with an API-call counter feeding the
// batch's advisory budget telemetry.
type countingHost struct {
	host  HostPort
	calls atomic.Int64
}

func newCountingHost(host HostPort) *countingHost {
	return &countingHost{host: host}
}

// Calls returns the number of hosting-API calls made so far.
func (c *countingHost) Calls() int64 {
	return c.calls.Load()
}

func (c *countingHost) Owner() string {
	return c.host.Owner()
}

func (c *countingHost) CreateRepo(ctx context.Context, name, description string) error {
	c.calls.Add(1)
	return c.host.CreateRepo(ctx, name, description)
}

func (c *countingHost) GetBranchHead(ctx context.Context, repo, branch string) (string, bool, error) {
	c.calls.Add(1)
	return c.host.GetBranchHead(ctx, repo, branch)
}

func (c *countingHost) CreateBranch(ctx context.Context, repo, branch, sha string) error {
	c.calls.Add(1)
	return c.host.CreateBranch(ctx, repo, branch, sha)
}

func (c *countingHost) GetFile(ctx context.Context, repo, branch, path string) (string, string, bool, error) {
	c.calls.Add(1)
	return c.host.GetFile(ctx, repo, branch, path)
}

func (c *countingHost) PutFile(ctx context.Context, repo, branch, path, content, message, sha string) error {
	c.calls.Add(1)
	return c.host.PutFile(ctx, repo, branch, path, content, message, sha)
}

func (c *countingHost) ListOpenPullRequests(ctx context.Context, repo, head, base string) ([]githost.PullRequest, error) {
	c.calls.Add(1)
	return c.host.ListOpenPullRequests(ctx, repo, head, base)
}

func (c *countingHost) CreatePullRequest(ctx context.Context, repo, head, base, title, body string) (githost.PullRequest, error) {
	c.calls.Add(1)
	return c.host.CreatePullRequest(ctx, repo, head, base, title, body)
}

func (c *countingHost) GetPullRequest(ctx context.Context, repo string, number int) (githost.PullRequest, error) {
	c.calls.Add(1)
	return c.host.GetPullRequest(ctx, repo, number)
}

func (c *countingHost) MergePullRequest(ctx context.Context, repo string, number int, message string) error {
	c.calls.Add(1)
	return c.host.MergePullRequest(ctx, repo, number, message)
}

func (c *countingHost) ListCheckRuns(ctx context.Context, repo, sha string) ([]githost.CheckRun, error) {
	c.calls.Add(1)
	return c.host.ListCheckRuns(ctx, repo, sha)
}

func (c *countingHost) ProtectBranch(ctx context.Context, repo, branch, checkContext string) error {
	c.calls.Add(1)
	return c.host.ProtectBranch(ctx, repo, branch, checkContext)
}

func (c *countingHost) EnablePages(ctx context.Context, repo, branch string) error {
	c.calls.Add(1)
	return c.host.EnablePages(ctx, repo, branch)
}
