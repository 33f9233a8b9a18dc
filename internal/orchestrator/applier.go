package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/githost"
	"github.com/awlondon/openclaw/internal/logging"
)

// ChangeApplier performs a task's version-control mutations as idempotent
// read-then-conditional-write primitives. Re-running an identical batch
// against the same repository state converges instead of duplicating
// branches, files, or pull requests.
type ChangeApplier struct {
	host HostPort
	log  *logging.Logger
}

// NewChangeApplier creates an applier over the given host.
func NewChangeApplier(host HostPort, log *logging.Logger) *ChangeApplier {
	if log == nil {
		log = logging.NewNop()
	}
	return &ChangeApplier{host: host, log: log.Named("applier")}
}

// EnsureBranchFrom makes sure branch exists, creating it from base's current
// head when absent. Losing a creation race to a concurrent writer is benign:
// the branch exists either way.
func (a *ChangeApplier) EnsureBranchFrom(ctx context.Context, repo, base, branch string) error {
	_, found, err := a.host.GetBranchHead(ctx, repo, branch)
	if err != nil {
		return err
	}
	if found {
		a.log.Debug(ctx, "branch already exists", zap.String("branch", branch))
		return nil
	}

	baseSHA, baseFound, err := a.host.GetBranchHead(ctx, repo, base)
	if err != nil {
		return err
	}
	if !baseFound {
		return fmt.Errorf("base branch %q not found in %s", base, repo)
	}

	if err := a.host.CreateBranch(ctx, repo, branch, baseSHA); err != nil {
		if githost.IsConflict(err) {
			a.log.Debug(ctx, "lost branch creation race", zap.String("branch", branch))
			return nil
		}
		return err
	}
	a.log.Info(ctx, "branch created",
		zap.String("branch", branch), zap.String("base", base), zap.String("sha", baseSHA))
	return nil
}

// UpsertFile creates or updates a file on a branch. A write rejected by a
// stale-SHA conflict is retried once with a freshly fetched SHA.
func (a *ChangeApplier) UpsertFile(ctx context.Context, repo, branch, path, content, message string) error {
	_, sha, _, err := a.host.GetFile(ctx, repo, branch, path)
	if err != nil {
		return err
	}

	err = a.host.PutFile(ctx, repo, branch, path, content, message, sha)
	if err == nil || !githost.IsConflict(err) {
		return err
	}

	// Concurrent writer won the read-modify-write race; refresh and retry once.
	a.log.Warn(ctx, "stale sha conflict, retrying upsert", zap.String("path", path))
	_, sha, _, err = a.host.GetFile(ctx, repo, branch, path)
	if err != nil {
		return err
	}
	return a.host.PutFile(ctx, repo, branch, path, content, message, sha)
}

// AppendToFile appends a snippet to a file's current content. A file that
// already contains the snippet is left untouched, so repeated runs converge.
func (a *ChangeApplier) AppendToFile(ctx context.Context, repo, branch, path, snippet, message string) error {
	content, sha, found, err := a.host.GetFile(ctx, repo, branch, path)
	if err != nil {
		return err
	}
	if found && strings.Contains(content, snippet) {
		a.log.Debug(ctx, "snippet already present", zap.String("path", path))
		return nil
	}

	appended := content + snippet
	err = a.host.PutFile(ctx, repo, branch, path, appended, message, sha)
	if err == nil || !githost.IsConflict(err) {
		return err
	}

	a.log.Warn(ctx, "stale sha conflict, retrying append", zap.String("path", path))
	content, sha, found, err = a.host.GetFile(ctx, repo, branch, path)
	if err != nil {
		return err
	}
	if found && strings.Contains(content, snippet) {
		return nil
	}
	return a.host.PutFile(ctx, repo, branch, path, content+snippet, message, sha)
}

// EnsurePullRequest returns the open pull request for (head, base), creating
// one only when none exists. At most one open PR per (head, base) pair ever
// results from repeated calls.
func (a *ChangeApplier) EnsurePullRequest(ctx context.Context, repo, head, base, title, body string) (githost.PullRequest, error) {
	open, err := a.host.ListOpenPullRequests(ctx, repo, head, base)
	if err != nil {
		return githost.PullRequest{}, err
	}
	if len(open) > 0 {
		a.log.Info(ctx, "pull request already open",
			zap.String("head", head), zap.Int("number", open[0].Number))
		return open[0], nil
	}

	pr, err := a.host.CreatePullRequest(ctx, repo, head, base, title, body)
	if err != nil {
		return githost.PullRequest{}, err
	}
	a.log.Info(ctx, "pull request opened",
		zap.String("head", head), zap.String("base", base), zap.Int("number", pr.Number))
	return pr, nil
}

// Apply performs one task's full set of mutations: ensure the branch,
// upsert every file change, and ensure exactly one open pull request.
func (a *ChangeApplier) Apply(ctx context.Context, repo, base string, patch PatchCommit) (githost.PullRequest, error) {
	if err := a.EnsureBranchFrom(ctx, repo, base, patch.Branch); err != nil {
		return githost.PullRequest{}, err
	}

	for _, f := range patch.Files {
		var err error
		if f.Append {
			err = a.AppendToFile(ctx, repo, patch.Branch, f.Path, f.Content, f.Message)
		} else {
			err = a.UpsertFile(ctx, repo, patch.Branch, f.Path, f.Content, f.Message)
		}
		if err != nil {
			return githost.PullRequest{}, fmt.Errorf("apply %s: %w", f.Path, err)
		}
	}

	return a.EnsurePullRequest(ctx, repo, patch.Branch, base, patch.Title, patch.Body)
}
