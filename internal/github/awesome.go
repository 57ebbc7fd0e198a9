package github

import (
	"context"
	"regexp"
	"strings"

	"github.com/kevinmichaelchen/repoboard/internal/logging"
)

var repoURLPattern = regexp.MustCompile(`https://github\.com/([a-zA-Z0-9_-]+)/([a-zA-Z0-9_.-]+)`)

// ExtractRepoURLs returns the distinct https://github.com/owner/repo links in
// a markdown document, in order of first appearance.
func ExtractRepoURLs(markdown string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range repoURLPattern.FindAllStringSubmatch(markdown, -1) {
		name := strings.TrimSuffix(strings.TrimRight(m[2], "."), ".git")
		if name == "" {
			continue
		}
		u := "https://github.com/" + m[1] + "/" + name
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// SplitRepoURL returns owner and name from a canonical repository URL.
func SplitRepoURL(u string) (owner, name string, ok bool) {
	rest, found := strings.CutPrefix(u, "https://github.com/")
	if !found {
		return "", "", false
	}
	owner, name, ok = strings.Cut(strings.Trim(rest, "/"), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

// AwesomeSource resolves the repositories linked from awesome lists.
type AwesomeSource struct {
	client  *Client
	session *Session
}

func NewAwesomeSource(c *Client, s *Session) *AwesomeSource {
	return &AwesomeSource{client: c, session: s}
}

// Fetch downloads each list, extracts repository links and looks each one
// up. Repositories already seen in the session are skipped. A failed list or
// lookup is logged and skipped.
func (a *AwesomeSource) Fetch(ctx context.Context, listURLs []string, limit int) []SearchItem {
	logger := logging.FromContext(ctx)
	var out []SearchItem

	for _, listURL := range listURLs {
		text, err := a.client.FetchText(ctx, listURL)
		if err != nil {
			logger.Warn("awesome list failed", "url", listURL, "err", err)
			continue
		}
		urls := ExtractRepoURLs(text)
		logger.Info("awesome list parsed", "url", listURL, "links", len(urls))

		for _, u := range urls {
			if limit > 0 && len(out) >= limit {
				return out
			}
			if a.session.Seen(u) {
				continue
			}
			owner, name, ok := SplitRepoURL(u)
			if !ok {
				continue
			}
			it, err := a.client.Repository(ctx, owner, name)
			if err != nil {
				logger.Debug("awesome entry skipped", "url", u, "err", err)
				continue
			}
			if it.HTMLURL == "" || a.session.Seen(it.HTMLURL) {
				continue
			}
			a.session.MarkSeen(it.HTMLURL)
			out = append(out, it)
			a.session.sleep(ctx, a.session.pageDelay)
		}
	}
	a.session.stats["awesome"] += len(out)
	return out
}
