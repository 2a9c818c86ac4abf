// Package release looks up published versions on GitHub.
package release

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blang/semver"
	ghApi "github.com/google/go-github/v26/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const requestTimeout = 10 * time.Second

// ErrNoRelease is returned when a repository has no usable release or tag.
var ErrNoRelease = errors.New("no release found")

// Checker finds the newest stable release of one repository.
type Checker struct {
	client *ghApi.Client
	owner  string
	repo   string
	logger *zap.Logger
}

// NewChecker creates a Checker for a GitHub repository URL. A non-empty
// token authenticates requests, which raises the API rate limit.
func NewChecker(ctx context.Context, repoURL, token string, logger *zap.Logger) (*Checker, error) {
	owner, repo, err := ParseRepo(repoURL)
	if err != nil {
		return nil, err
	}

	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(ctx, ts)
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = requestTimeout

	return NewCheckerWithClient(ghApi.NewClient(hc), owner, repo, logger), nil
}

// NewCheckerWithClient creates a Checker using an existing API client.
func NewCheckerWithClient(client *ghApi.Client, owner, repo string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger.Named("release"),
	}
}

// LatestRelease returns the tag of the newest stable release. Releases are
// compared by semantic version; drafts and pre-releases are skipped. When
// the repository publishes no releases, tags are used instead.
func (c *Checker) LatestRelease(ctx context.Context) (string, error) {
	releases, _, err := c.client.Repositories.ListReleases(ctx, c.owner, c.repo, &ghApi.ListOptions{PerPage: 50})
	if err != nil {
		return "", fmt.Errorf("listing releases of %s/%s: %w", c.owner, c.repo, err)
	}

	var tags []string
	for _, r := range releases {
		if r.GetDraft() || r.GetPrerelease() {
			continue
		}
		tags = append(tags, r.GetTagName())
	}
	if tag, ok := Newest(tags); ok {
		return tag, nil
	}

	c.logger.Debug("no releases, falling back to tags", zap.String("repo", c.owner+"/"+c.repo))
	repoTags, _, err := c.client.Repositories.ListTags(ctx, c.owner, c.repo, &ghApi.ListOptions{PerPage: 50})
	if err != nil {
		return "", fmt.Errorf("listing tags of %s/%s: %w", c.owner, c.repo, err)
	}
	tags = tags[:0]
	for _, t := range repoTags {
		tags = append(tags, t.GetName())
	}
	if tag, ok := Newest(tags); ok {
		return tag, nil
	}
	return "", fmt.Errorf("%w for %s/%s", ErrNoRelease, c.owner, c.repo)
}

// Newest returns the highest stable semantic version among tags, in its
// original spelling. Tags that are not semantic versions are ignored.
func Newest(tags []string) (string, bool) {
	newestRelease, _ := semver.Make("0.0.0")
	var newest string
	for _, tag := range tags {
		v, err := Parse(tag)
		if err != nil || len(v.Pre) > 0 {
			continue
		}
		if newest == "" || v.GT(newestRelease) {
			newestRelease = v
			newest = tag
		}
	}
	return newest, newest != ""
}

// Parse parses a tag such as "v1.2.3" as a semantic version.
func Parse(tag string) (semver.Version, error) {
	return semver.Make(strings.Replace(strings.TrimSpace(tag), "v", "", 1))
}

// IsNewer reports whether latest is a higher version than current.
func IsNewer(current, latest string) (bool, error) {
	cur, err := Parse(current)
	if err != nil {
		return false, fmt.Errorf("parsing version %q: %w", current, err)
	}
	lat, err := Parse(latest)
	if err != nil {
		return false, fmt.Errorf("parsing version %q: %w", latest, err)
	}
	return lat.GT(cur), nil
}

// ParseRepo extracts owner and repository name from a GitHub URL.
func ParseRepo(repoURL string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(repoURL))
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", repoURL, err)
	}
	if !strings.EqualFold(u.Host, "github.com") {
		return "", "", fmt.Errorf("%q is not a GitHub repository", repoURL)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%q does not name an owner and repository", repoURL)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
