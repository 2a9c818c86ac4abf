package core

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	manifestSuffix = ".json"
	repoSuffix     = ".git"
)

// DefaultHostingDomains are hosts whose URLs are treated as repositories.
var DefaultHostingDomains = []string{"github.com", "gitlab.com", "bitbucket.org", "codeberg.org"}

// ownerRepoPattern matches an "owner/repo" URL path (2 segments, no file extension on repo).
var ownerRepoPattern = regexp.MustCompile(`^/?[a-zA-Z0-9_.-]+/[a-zA-Z0-9_-]+(\.git)?/?$`)

// fileRefSegments are path segments hosting sites use for single-file links
// (raw content, blobs, release assets) rather than the repository itself.
var fileRefSegments = map[string]bool{
	"raw":      true,
	"blob":     true,
	"resolve":  true,
	"releases": true,
	"download": true,
}

// Classifier decides the installation strategy for a locator.
type Classifier struct {
	HostingDomains []string
}

// NewClassifier creates a Classifier. Empty domains fall back to DefaultHostingDomains.
func NewClassifier(domains []string) Classifier {
	if len(domains) == 0 {
		domains = DefaultHostingDomains
	}
	return Classifier{HostingDomains: domains}
}

// Classify applies the default classifier.
func Classify(locator string) LinkKind {
	return NewClassifier(nil).Classify(locator)
}

// Classify returns the LinkKind for locator. Rules are order-sensitive:
//   - path ending in ".json"                 → LinkManifest (wins over the domain rule)
//   - path ending in ".git"                  → LinkRepository
//   - hosting domain, not a single-file path → LinkRepository
//   - "owner/repo" path without extension    → LinkRepository
//   - anything else                          → LinkFile
func (c Classifier) Classify(locator string) LinkKind {
	host, p := splitLocator(locator)
	lower := strings.ToLower(p)

	if strings.HasSuffix(lower, manifestSuffix) {
		return LinkManifest
	}
	if strings.HasSuffix(lower, repoSuffix) {
		return LinkRepository
	}
	if c.isHostingDomain(host) && !isFileRef(p) {
		return LinkRepository
	}
	if ownerRepoPattern.MatchString(p) {
		return LinkRepository
	}
	return LinkFile
}

func (c Classifier) isHostingDomain(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	for _, d := range c.HostingDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// isFileRef reports whether a hosting-site path points at a single file.
func isFileRef(p string) bool {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	if len(segments) <= 2 {
		return false
	}
	for _, s := range segments[2:] {
		if fileRefSegments[s] {
			return true
		}
	}
	return path.Ext(segments[len(segments)-1]) != ""
}

// splitLocator returns host and path of a locator with query and fragment removed.
// SSH-style "git@host:owner/repo" and bare paths are handled.
func splitLocator(locator string) (string, string) {
	locator = strings.TrimSpace(locator)

	if strings.HasPrefix(locator, "git@") {
		rest := strings.TrimPrefix(locator, "git@")
		if host, p, ok := strings.Cut(rest, ":"); ok {
			return host, "/" + p
		}
	}

	if u, err := url.Parse(locator); err == nil && u.Host != "" {
		return u.Host, u.Path
	}

	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		locator = locator[:i]
	}
	return "", locator
}

// Basename returns the last path segment of a locator, ignoring query strings.
func Basename(locator string) string {
	_, p := splitLocator(locator)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	// url.Parse has already decoded the path once; decoding again would
	// turn "%252F" into a separator.
	return path.Base(p)
}

// RepoName returns the working-copy directory name for a repository locator.
func RepoName(locator string) string {
	return strings.TrimSuffix(Basename(locator), repoSuffix)
}

// locatorChecksum extracts an expected SHA-256 digest from a "#sha256=<hex>" fragment.
func locatorChecksum(locator string) string {
	_, frag, ok := strings.Cut(locator, "#")
	if !ok {
		return ""
	}
	for _, part := range strings.Split(frag, "&") {
		if v, ok := strings.CutPrefix(part, "sha256="); ok {
			return strings.ToLower(v)
		}
	}
	return ""
}

// isLocalPath reports whether the input looks like a filesystem path.
func isLocalPath(input string) bool {
	return strings.HasPrefix(input, "./") ||
		strings.HasPrefix(input, "../") ||
		strings.HasPrefix(input, "/") ||
		strings.HasPrefix(input, "~/") ||
		input == "." || input == ".."
}
