// Package anchors resolves schema.ExternalAnchor references against
// external systems, read-only. Grounded in the teacher's
// internal/routing.RealGitHubChecker: an optionally-authenticated
// go-github client wrapped behind a small interface so callers can
// fall back gracefully instead of failing a packet assembly over a
// transient upstream error.
package anchors

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Evidence is the resolved, evidence-only summary of an external
// anchor. It never enters a claim's canonical signature or an op's
// content hash (schema.ExternalAnchor is itself excluded from both);
// it exists purely to let a human or a decision packet's rendering
// show what an anchor currently points at.
type Evidence struct {
	System string `json:"system"`
	Ref    string `json:"ref"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

// Resolver resolves external anchors. Implementations must never
// mutate the referenced system — spec.md's Non-goal that untrusted
// external input cannot affect committed ledger state except through
// a governed operator commit applies here too.
type Resolver interface {
	Resolve(ctx context.Context, system, ref string) (Evidence, error)
}

// GitHubResolver resolves "github" anchors of the form "owner/repo#123"
// (issue or pull request number) via the GitHub REST API.
type GitHubResolver struct {
	client *github.Client
}

// NewGitHubResolver constructs a resolver. An empty token yields an
// unauthenticated client, rate-limited to 60 req/hour.
func NewGitHubResolver(token string) *GitHubResolver {
	if token == "" {
		return &GitHubResolver{client: github.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHubResolver{client: github.NewClient(oauth2.NewClient(context.Background(), ts))}
}

// Resolve looks up ref ("owner/repo#123") against the GitHub issues
// API, which also serves pull requests.
func (r *GitHubResolver) Resolve(ctx context.Context, system, ref string) (Evidence, error) {
	if system != "github" {
		return Evidence{}, fmt.Errorf("anchors: GitHubResolver cannot resolve system %q", system)
	}
	owner, repo, number, err := parseIssueRef(ref)
	if err != nil {
		return Evidence{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	issue, _, err := r.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return Evidence{}, fmt.Errorf("anchors: resolving %s: %w", ref, err)
	}

	return Evidence{
		System: system,
		Ref:    ref,
		Title:  issue.GetTitle(),
		State:  issue.GetState(),
		URL:    issue.GetHTMLURL(),
	}, nil
}

// parseIssueRef splits "owner/repo#123" into its parts.
func parseIssueRef(ref string) (owner, repo string, number int, err error) {
	hashIdx := strings.LastIndex(ref, "#")
	if hashIdx < 0 {
		return "", "", 0, fmt.Errorf("anchors: ref %q missing '#<number>'", ref)
	}
	path, numStr := ref[:hashIdx], ref[hashIdx+1:]
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", 0, fmt.Errorf("anchors: ref %q missing 'owner/repo' prefix", ref)
	}
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return "", "", 0, fmt.Errorf("anchors: ref %q has non-numeric issue number: %w", ref, err)
	}
	return parts[0], parts[1], n, nil
}
