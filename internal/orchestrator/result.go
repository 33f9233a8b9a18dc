package orchestrator

import "github.com/awlondon/openclaw/internal/githost"

// aggregator collects per-task outcomes and the advisory budget into a
// single batch report.
type aggregator struct {
	results []TaskResult
	prs     []githost.PullRequest
	tokens  int64
}

func newAggregator(capacity int) *aggregator {
	return &aggregator{results: make([]TaskResult, 0, capacity)}
}

// add appends a finished task result.
func (a *aggregator) add(r TaskResult) {
	a.results = append(a.results, r)
}

// addPR remembers an opened pull request for the report's PR listing.
func (a *aggregator) addPR(pr githost.PullRequest) {
	a.prs = append(a.prs, pr)
}

// addUsage accumulates collaborator token consumption.
func (a *aggregator) addUsage(u Usage) {
	a.tokens += u.Tokens
}

// budget snapshots the advisory telemetry, including the hosting-API call
// count observed so far.
func (a *aggregator) budget(apiCalls int64) Budget {
	return Budget{TokensUsed: a.tokens, APICalls: apiCalls}
}

// report assembles the final batch report.
func (a *aggregator) report(repo, liveURL string, order []string, apiCalls int64) *BatchReport {
	return &BatchReport{
		Repo:      repo,
		LiveURL:   liveURL,
		TaskOrder: order,
		Results:   a.results,
		PRs:       a.prs,
		Budget:    a.budget(apiCalls),
	}
}
