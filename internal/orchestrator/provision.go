package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/logging"
)

// defaultRepoName is used when slugifying the objective leaves nothing.
const defaultRepoName = "openclaw-project"

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9-]`)
	slugCollapse = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a repository name from an objective: lowercase,
// whitespace to hyphens, strip everything outside [a-z0-9-], collapse
// repeated hyphens, truncate to 50 characters.
func Slugify(objective string) string {
	s := strings.ToLower(objective)
	s = strings.Join(strings.Fields(s), "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.Trim(s[:50], "-")
	}
	if s == "" {
		return defaultRepoName
	}
	return s
}

// ciWorkflow is the seeded CI workflow. Its job name is the status-check
// context branch protection requires.
const ciWorkflow = `name: CI
on:
  push:
  pull_request:
jobs:
  build:
    name: %s
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - name: Validate site
        run: test -f index.html
`

// pagesWorkflow deploys the default branch to static pages.
const pagesWorkflow = `name: Deploy Pages
on:
  push:
    branches: [%s]
permissions:
  contents: read
  pages: write
  id-token: write
jobs:
  deploy:
    runs-on: ubuntu-latest
    environment:
      name: github-pages
    steps:
      - uses: actions/checkout@v4
      - uses: actions/configure-pages@v4
      - uses: actions/upload-pages-artifact@v3
        with:
          path: .
      - uses: actions/deploy-pages@v4
`

const seedIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>%s</title>
</head>
<body>
  <h1>%s</h1>
  <p>Generated by openclaw.</p>
</body>
</html>
`

// Provisioner creates the target repository, seeds it, and installs branch
// protection. Repository creation is not idempotent; protection and pages
// are applied with overwrite semantics and are safe to repeat.
type Provisioner struct {
	host          HostPort
	applier       *ChangeApplier
	defaultBranch string
	checkContext  string
	log           *logging.Logger
}

// NewProvisioner creates a provisioner.
func NewProvisioner(host HostPort, applier *ChangeApplier, defaultBranch, checkContext string, log *logging.Logger) *Provisioner {
	if log == nil {
		log = logging.NewNop()
	}
	return &Provisioner{
		host:          host,
		applier:       applier,
		defaultBranch: defaultBranch,
		checkContext:  checkContext,
		log:           log.Named("provisioner"),
	}
}

// Provision creates the repository named after the objective, commits the
// seed site and workflows to the default branch, installs branch
// protection, and optionally enables pages. Returns the repository name and
// the live pages URL (empty when pages are disabled).
func (p *Provisioner) Provision(ctx context.Context, objective string, enablePages bool) (repo, liveURL string, err error) {
	repo = Slugify(objective)

	p.log.Info(ctx, "creating repository", zap.String("repo", repo))
	if err := p.host.CreateRepo(ctx, repo, objective); err != nil {
		return "", "", fmt.Errorf("create repository %s: %w", repo, err)
	}

	seeds := []FileChange{
		{Path: "index.html", Content: fmt.Sprintf(seedIndexHTML, objective, objective), Message: "chore: seed site homepage"},
		{Path: ".github/workflows/ci.yml", Content: fmt.Sprintf(ciWorkflow, p.checkContext), Message: "ci: add check workflow"},
	}
	if enablePages {
		seeds = append(seeds, FileChange{
			Path:    ".github/workflows/pages.yml",
			Content: fmt.Sprintf(pagesWorkflow, p.defaultBranch),
			Message: "ci: add pages deploy workflow",
		})
	}
	for _, f := range seeds {
		if err := p.applier.UpsertFile(ctx, repo, p.defaultBranch, f.Path, f.Content, f.Message); err != nil {
			return "", "", fmt.Errorf("seed %s: %w", f.Path, err)
		}
	}

	if err := p.host.ProtectBranch(ctx, repo, p.defaultBranch, p.checkContext); err != nil {
		return "", "", fmt.Errorf("protect %s: %w", p.defaultBranch, err)
	}

	if enablePages {
		if err := p.host.EnablePages(ctx, repo, p.defaultBranch); err != nil {
			return "", "", fmt.Errorf("enable pages: %w", err)
		}
		liveURL = fmt.Sprintf("https://%s.github.io/%s/", p.host.Owner(), repo)
	}

	p.log.Info(ctx, "repository provisioned",
		zap.String("repo", repo), zap.Bool("pages", enablePages))
	return repo, liveURL, nil
}
