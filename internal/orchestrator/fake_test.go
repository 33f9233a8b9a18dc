package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/awlondon/openclaw/internal/githost"
	"github.com/awlondon/openclaw/internal/plan"
)

// fakeHost is an in-memory HostPort with real branch/file/PR semantics:
// branches inherit files from their base, stale-SHA writes conflict, and
// pull requests are deduplicated by (head, base). Every call is recorded
// so tests can assert on exact call patterns, and failures can be queued
// per operation.
type fakeHost struct {
	t             *testing.T
	owner         string
	defaultBranch string

	repos    map[string]*fakeRepo
	ops      []string
	failures map[string][]error

	nextPR int
	seq    int

	// mergeableState is reported for every open PR. checkRuns, when set,
	// overrides the default all-success check-run listing.
	mergeableState string
	checkRuns      func(repo, sha string) []githost.CheckRun
}

type fakeRepo struct {
	description string
	branches    map[string]*fakeBranch
	prs         []*githost.PullRequest
	protected   map[string]string
	pages       bool
}

type fakeBranch struct {
	sha   string
	files map[string]fakeFile
}

type fakeFile struct {
	content string
	sha     string
}

func newFakeHost(t *testing.T) *fakeHost {
	return &fakeHost{
		t:              t,
		owner:          "openclaw-dev",
		defaultBranch:  "main",
		repos:          make(map[string]*fakeRepo),
		failures:       make(map[string][]error),
		mergeableState: "clean",
	}
}

func conflictErr(op string) error {
	return &githost.APIError{Op: op, StatusCode: 422, Body: "conflict"}
}

func notFoundErr(op string) error {
	return &githost.APIError{Op: op, StatusCode: 404, Body: "not found"}
}

// fail queues errors to be returned by subsequent calls recorded under key.
func (f *fakeHost) fail(key string, errs ...error) {
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *fakeHost) takeFailure(key string) error {
	q := f.failures[key]
	if len(q) == 0 {
		return nil
	}
	f.failures[key] = q[1:]
	return q[0]
}

func (f *fakeHost) record(op string) error {
	f.ops = append(f.ops, op)
	return f.takeFailure(op)
}

// countOps counts recorded calls whose key starts with prefix.
func (f *fakeHost) countOps(prefix string) int {
	n := 0
	for _, op := range f.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeHost) newSHA() string {
	f.seq++
	return fmt.Sprintf("sha-%04d", f.seq)
}

func (f *fakeHost) repo(name string) *fakeRepo {
	f.t.Helper()
	r, ok := f.repos[name]
	if !ok {
		f.t.Fatalf("repository %q does not exist", name)
	}
	return r
}

// fileContent looks up a file without recording a call.
func (f *fakeHost) fileContent(repo, branch, path string) (string, bool) {
	r, ok := f.repos[repo]
	if !ok {
		return "", false
	}
	b, ok := r.branches[branch]
	if !ok {
		return "", false
	}
	file, ok := b.files[path]
	return file.content, ok
}

func (f *fakeHost) Owner() string {
	return f.owner
}

func (f *fakeHost) CreateRepo(_ context.Context, name, description string) error {
	if err := f.record("CreateRepo " + name); err != nil {
		return err
	}
	if _, exists := f.repos[name]; exists {
		return conflictErr("create repo")
	}
	f.repos[name] = &fakeRepo{
		description: description,
		branches: map[string]*fakeBranch{
			f.defaultBranch: {
				sha: f.newSHA(),
				files: map[string]fakeFile{
					"README.md": {content: "# " + name + "\n", sha: f.newSHA()},
				},
			},
		},
		protected: make(map[string]string),
	}
	return nil
}

func (f *fakeHost) GetBranchHead(_ context.Context, repo, branch string) (string, bool, error) {
	if err := f.record(fmt.Sprintf("GetBranchHead %s/%s", repo, branch)); err != nil {
		return "", false, err
	}
	r, ok := f.repos[repo]
	if !ok {
		return "", false, nil
	}
	b, ok := r.branches[branch]
	if !ok {
		return "", false, nil
	}
	return b.sha, true, nil
}

func (f *fakeHost) CreateBranch(_ context.Context, repo, branch, sha string) error {
	if err := f.record(fmt.Sprintf("CreateBranch %s/%s", repo, branch)); err != nil {
		return err
	}
	r := f.repo(repo)
	if _, exists := r.branches[branch]; exists {
		return conflictErr("create branch")
	}
	src := r.branchBySHA(sha)
	if src == nil {
		return notFoundErr("create branch")
	}
	files := make(map[string]fakeFile, len(src.files))
	for p, file := range src.files {
		files[p] = file
	}
	r.branches[branch] = &fakeBranch{sha: sha, files: files}
	return nil
}

func (r *fakeRepo) branchBySHA(sha string) *fakeBranch {
	for _, b := range r.branches {
		if b.sha == sha {
			return b
		}
	}
	return nil
}

func (f *fakeHost) GetFile(_ context.Context, repo, branch, path string) (string, string, bool, error) {
	if err := f.record(fmt.Sprintf("GetFile %s/%s/%s", repo, branch, path)); err != nil {
		return "", "", false, err
	}
	r, ok := f.repos[repo]
	if !ok {
		return "", "", false, nil
	}
	b, ok := r.branches[branch]
	if !ok {
		return "", "", false, nil
	}
	file, ok := b.files[path]
	if !ok {
		return "", "", false, nil
	}
	return file.content, file.sha, true, nil
}

func (f *fakeHost) PutFile(_ context.Context, repo, branch, path, content, message, sha string) error {
	if err := f.record(fmt.Sprintf("PutFile %s/%s/%s", repo, branch, path)); err != nil {
		return err
	}
	r := f.repo(repo)
	b, ok := r.branches[branch]
	if !ok {
		return notFoundErr("put file")
	}
	existing, exists := b.files[path]
	if exists && sha != existing.sha {
		return conflictErr("put file")
	}
	if !exists && sha != "" {
		return conflictErr("put file")
	}
	b.files[path] = fakeFile{content: content, sha: f.newSHA()}
	b.sha = f.newSHA()
	return nil
}

func (f *fakeHost) ListOpenPullRequests(_ context.Context, repo, head, base string) ([]githost.PullRequest, error) {
	if err := f.record(fmt.Sprintf("ListOpenPullRequests %s/%s", repo, head)); err != nil {
		return nil, err
	}
	r := f.repo(repo)
	var open []githost.PullRequest
	for _, pr := range r.prs {
		if pr.State == "open" && pr.HeadRef == head && pr.BaseRef == base {
			open = append(open, *pr)
		}
	}
	return open, nil
}

func (f *fakeHost) CreatePullRequest(_ context.Context, repo, head, base, title, body string) (githost.PullRequest, error) {
	if err := f.record(fmt.Sprintf("CreatePullRequest %s/%s", repo, head)); err != nil {
		return githost.PullRequest{}, err
	}
	r := f.repo(repo)
	b, ok := r.branches[head]
	if !ok {
		return githost.PullRequest{}, notFoundErr("create pull request")
	}
	f.nextPR++
	pr := &githost.PullRequest{
		Number:         f.nextPR,
		HeadRef:        head,
		BaseRef:        base,
		State:          "open",
		MergeableState: f.mergeableState,
		HeadSHA:        b.sha,
		HTMLURL:        fmt.Sprintf("https://github.com/%s/%s/pull/%d", f.owner, repo, f.nextPR),
	}
	_ = title
	_ = body
	r.prs = append(r.prs, pr)
	return *pr, nil
}

func (f *fakeHost) GetPullRequest(_ context.Context, repo string, number int) (githost.PullRequest, error) {
	if err := f.record(fmt.Sprintf("GetPullRequest %s#%d", repo, number)); err != nil {
		return githost.PullRequest{}, err
	}
	pr := f.findPR(repo, number)
	if pr == nil {
		return githost.PullRequest{}, notFoundErr("get pull request")
	}
	out := *pr
	out.MergeableState = f.mergeableState
	return out, nil
}

func (f *fakeHost) MergePullRequest(_ context.Context, repo string, number int, message string) error {
	if err := f.record(fmt.Sprintf("MergePullRequest %s#%d", repo, number)); err != nil {
		return err
	}
	pr := f.findPR(repo, number)
	if pr == nil {
		return notFoundErr("merge pull request")
	}
	if pr.State != "open" {
		return conflictErr("merge pull request")
	}
	_ = message
	pr.State = "closed"
	return nil
}

func (f *fakeHost) findPR(repo string, number int) *githost.PullRequest {
	r, ok := f.repos[repo]
	if !ok {
		return nil
	}
	for _, pr := range r.prs {
		if pr.Number == number {
			return pr
		}
	}
	return nil
}

func (f *fakeHost) ListCheckRuns(_ context.Context, repo, sha string) ([]githost.CheckRun, error) {
	if err := f.record(fmt.Sprintf("ListCheckRuns %s/%s", repo, sha)); err != nil {
		return nil, err
	}
	if f.checkRuns != nil {
		return f.checkRuns(repo, sha), nil
	}
	return []githost.CheckRun{{Name: "ci/build", Status: "completed", Conclusion: "success"}}, nil
}

func (f *fakeHost) ProtectBranch(_ context.Context, repo, branch, checkContext string) error {
	if err := f.record(fmt.Sprintf("ProtectBranch %s/%s", repo, branch)); err != nil {
		return err
	}
	f.repo(repo).protected[branch] = checkContext
	return nil
}

func (f *fakeHost) EnablePages(_ context.Context, repo, branch string) error {
	if err := f.record("EnablePages " + repo); err != nil {
		return err
	}
	_ = branch
	f.repo(repo).pages = true
	return nil
}

// Collaborator port fakes.

type fakePlanner struct {
	graph plan.Graph
	usage Usage
	err   error
}

func (f fakePlanner) Plan(context.Context, string, string) (plan.Graph, Usage, error) {
	return f.graph, f.usage, f.err
}

// fakeCoder delegates to StubCoder unless fn or err is set.
type fakeCoder struct {
	usage Usage
	err   error
	fn    func(task plan.Task) PatchCommit
}

func (f fakeCoder) Code(ctx context.Context, objective string, task plan.Task) (PatchCommit, Usage, error) {
	if f.err != nil {
		return PatchCommit{}, f.usage, f.err
	}
	if f.fn != nil {
		return f.fn(task), f.usage, nil
	}
	patch, _, err := StubCoder{}.Code(ctx, objective, task)
	return patch, f.usage, err
}

type fakeVerifier struct {
	verdict VerifierVerdict
	usage   Usage
	err     error
}

func (f fakeVerifier) Verify(context.Context, plan.Task, PatchCommit) (VerifierVerdict, Usage, error) {
	if f.err != nil {
		return VerifierVerdict{}, f.usage, f.err
	}
	if f.verdict.Status == "" {
		return VerifierVerdict{Status: "passed"}, f.usage, nil
	}
	return f.verdict, f.usage, nil
}

// fakePolicy allows every task unless decide is set.
type fakePolicy struct {
	cfgErr error
	decide func(in PolicyInput) (PolicyDecision, error)
}

func (f fakePolicy) BuildConfig(context.Context) (PolicyConfig, error) {
	if f.cfgErr != nil {
		return nil, f.cfgErr
	}
	return PolicyConfig{"max_risk": "high"}, nil
}

func (f fakePolicy) Evaluate(_ context.Context, in PolicyInput) (PolicyDecision, error) {
	if f.decide != nil {
		return f.decide(in)
	}
	return PolicyDecision{AllowMerge: true, RiskLevel: RiskLow}, nil
}
