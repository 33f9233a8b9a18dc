// Package githost is the boundary to the Git hosting API. All repository
// mutations the orchestrator performs go through the Client here, which
// authenticates with a bearer token, converts non-2xx responses into typed
// APIErrors, and retries transient failures with bounded backoff.
package githost

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/awlondon/openclaw/internal/config"
)

// PullRequest is the subset of hosting-API pull request state the
// orchestrator cares about.
type PullRequest struct {
	Number         int    `json:"number"`
	HeadRef        string `json:"branch"`
	BaseRef        string `json:"base"`
	State          string `json:"state"`
	MergeableState string `json:"mergeable_state,omitempty"`
	HeadSHA        string `json:"head_sha,omitempty"`
	HTMLURL        string `json:"html_url,omitempty"`
}

// CheckRun is one CI check report against a commit.
type CheckRun struct {
	Name       string
	Status     string
	Conclusion string
}

// Client talks to the GitHub API for a single account or organization.
type Client struct {
	gh    *github.Client
	owner string
	retry *RetryConfig
}

// NewClient creates an authenticated hosting-API client. The owner is the
// account or organization all repositories are created under.
func NewClient(ctx context.Context, token config.Secret, owner string, retryCfg *RetryConfig) (*Client, error) {
	if !token.IsSet() {
		return nil, fmt.Errorf("github token not set")
	}
	if owner == "" {
		return nil, fmt.Errorf("github owner not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	return &Client{gh: github.NewClient(tc), owner: owner, retry: retryCfg}, nil
}

// NewFromGitHub wraps an existing go-github client. Used by tests to point
// at an httptest server.
func NewFromGitHub(gh *github.Client, owner string) *Client {
	return &Client{gh: gh, owner: owner}
}

// Owner returns the configured account or organization.
func (c *Client) Owner() string {
	return c.owner
}

// CreateRepo creates a repository with an initialized default branch.
// Creation is not idempotent: a second call with the same name fails.
func (c *Client) CreateRepo(ctx context.Context, name, description string) error {
	repo := &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		AutoInit:    github.Bool(true),
	}

	_, err := retry(ctx, c.retry, func() (*github.Response, error) {
		_, resp, err := c.gh.Repositories.Create(ctx, c.owner, repo)
		if err != nil && resp != nil && resp.StatusCode == http.StatusNotFound {
			// Owner is a personal account, not an organization.
			_, resp, err = c.gh.Repositories.Create(ctx, "", repo)
		}
		return resp, err
	})
	return wrapErr("create repository", nil, err)
}

// GetBranchHead returns the head commit SHA of a branch, or found=false for
// a 404.
func (c *Client) GetBranchHead(ctx context.Context, repo, branch string) (sha string, found bool, err error) {
	var ref *github.Reference
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		var r *github.Response
		ref, r, err = c.gh.Git.GetRef(ctx, c.owner, repo, "heads/"+branch)
		return r, err
	})
	if err != nil {
		if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, wrapErr("get ref", resp, err)
	}
	return ref.GetObject().GetSHA(), true, nil
}

// CreateBranch creates a branch ref pointing at the given commit SHA.
func (c *Client) CreateBranch(ctx context.Context, repo, branch, sha string) error {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	}
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		_, r, err := c.gh.Git.CreateRef(ctx, c.owner, repo, ref)
		return r, err
	})
	return wrapErr("create ref", resp, err)
}

// GetFile fetches a file's decoded content and blob SHA on a branch.
// found=false for a 404.
func (c *Client) GetFile(ctx context.Context, repo, branch, path string) (content, sha string, found bool, err error) {
	var file *github.RepositoryContent
	opts := &github.RepositoryContentGetOptions{Ref: branch}
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		var r *github.Response
		file, _, r, err = c.gh.Repositories.GetContents(ctx, c.owner, repo, path, opts)
		return r, err
	})
	if err != nil {
		if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
			return "", "", false, nil
		}
		return "", "", false, wrapErr("get contents", resp, err)
	}
	if file == nil {
		return "", "", false, wrapErr("get contents", resp, fmt.Errorf("%s is a directory", path))
	}

	decoded, err := file.GetContent()
	if err != nil {
		return "", "", false, fmt.Errorf("decode %s: %w", path, err)
	}
	return decoded, file.GetSHA(), true, nil
}

// PutFile creates or updates a file on a branch. Pass the current blob SHA
// to update; pass "" to create. A stale SHA surfaces as a conflict APIError.
func (c *Client) PutFile(ctx context.Context, repo, branch, path, content, message, sha string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}

	var resp *github.Response
	var err error
	if sha == "" {
		resp, err = retry(ctx, c.retry, func() (*github.Response, error) {
			_, r, err := c.gh.Repositories.CreateFile(ctx, c.owner, repo, path, opts)
			return r, err
		})
		return wrapErr("create file", resp, err)
	}

	opts.SHA = github.String(sha)
	resp, err = retry(ctx, c.retry, func() (*github.Response, error) {
		_, r, err := c.gh.Repositories.UpdateFile(ctx, c.owner, repo, path, opts)
		return r, err
	})
	return wrapErr("update file", resp, err)
}

// ListOpenPullRequests lists open PRs for an exact (head, base) pair.
func (c *Client) ListOpenPullRequests(ctx context.Context, repo, head, base string) ([]PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State: "open",
		Head:  c.owner + ":" + head,
		Base:  base,
	}
	var prs []*github.PullRequest
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		var r *github.Response
		var err error
		prs, r, err = c.gh.PullRequests.List(ctx, c.owner, repo, opts)
		return r, err
	})
	if err != nil {
		return nil, wrapErr("list pull requests", resp, err)
	}

	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, convertPR(pr))
	}
	return out, nil
}

// CreatePullRequest opens a new pull request.
func (c *Client) CreatePullRequest(ctx context.Context, repo, head, base, title, body string) (PullRequest, error) {
	newPR := &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	}
	var pr *github.PullRequest
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		var r *github.Response
		var err error
		pr, r, err = c.gh.PullRequests.Create(ctx, c.owner, repo, newPR)
		return r, err
	})
	if err != nil {
		return PullRequest{}, wrapErr("create pull request", resp, err)
	}
	return convertPR(pr), nil
}

// GetPullRequest fetches a pull request, including its mergeable state.
func (c *Client) GetPullRequest(ctx context.Context, repo string, number int) (PullRequest, error) {
	var pr *github.PullRequest
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		var r *github.Response
		var err error
		pr, r, err = c.gh.PullRequests.Get(ctx, c.owner, repo, number)
		return r, err
	})
	if err != nil {
		return PullRequest{}, wrapErr("get pull request", resp, err)
	}
	return convertPR(pr), nil
}

// MergePullRequest performs a squash merge.
func (c *Client) MergePullRequest(ctx context.Context, repo string, number int, message string) error {
	opts := &github.PullRequestOptions{MergeMethod: "squash"}
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		_, r, err := c.gh.PullRequests.Merge(ctx, c.owner, repo, number, message, opts)
		return r, err
	})
	return wrapErr("merge pull request", resp, err)
}

// ListCheckRuns lists CI check runs reported against a commit SHA.
func (c *Client) ListCheckRuns(ctx context.Context, repo, sha string) ([]CheckRun, error) {
	var results *github.ListCheckRunsResults
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		var r *github.Response
		var err error
		results, r, err = c.gh.Checks.ListCheckRunsForRef(ctx, c.owner, repo, sha, nil)
		return r, err
	})
	if err != nil {
		return nil, wrapErr("list check runs", resp, err)
	}

	runs := make([]CheckRun, 0, len(results.CheckRuns))
	for _, run := range results.CheckRuns {
		runs = append(runs, CheckRun{
			Name:       run.GetName(),
			Status:     run.GetStatus(),
			Conclusion: run.GetConclusion(),
		})
	}
	return runs, nil
}

// ProtectBranch overwrites branch protection: the named status-check context
// is required and must be up to date, force-pushes and deletions are
// forbidden. The PUT semantics make re-provisioning safe.
func (c *Client) ProtectBranch(ctx context.Context, repo, branch, checkContext string) error {
	req := &github.ProtectionRequest{
		RequiredStatusChecks: &github.RequiredStatusChecks{
			Strict:   true,
			Contexts: []string{checkContext},
		},
		AllowForcePushes: github.Bool(false),
		AllowDeletions:   github.Bool(false),
	}
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		_, r, err := c.gh.Repositories.UpdateBranchProtection(ctx, c.owner, repo, branch, req)
		return r, err
	})
	return wrapErr("update branch protection", resp, err)
}

// EnablePages turns on static-pages publishing from the given branch root.
func (c *Client) EnablePages(ctx context.Context, repo, branch string) error {
	pages := &github.Pages{
		Source: &github.PagesSource{
			Branch: github.String(branch),
			Path:   github.String("/"),
		},
	}
	resp, err := retry(ctx, c.retry, func() (*github.Response, error) {
		_, r, err := c.gh.Repositories.EnablePages(ctx, c.owner, repo, pages)
		return r, err
	})
	if err != nil && IsConflict(wrapErr("enable pages", resp, err)) {
		// Pages already enabled from a previous run.
		return nil
	}
	return wrapErr("enable pages", resp, err)
}

func convertPR(pr *github.PullRequest) PullRequest {
	return PullRequest{
		Number:         pr.GetNumber(),
		HeadRef:        pr.GetHead().GetRef(),
		BaseRef:        pr.GetBase().GetRef(),
		State:          pr.GetState(),
		MergeableState: pr.GetMergeableState(),
		HeadSHA:        pr.GetHead().GetSHA(),
		HTMLURL:        pr.GetHTMLURL(),
	}
}
