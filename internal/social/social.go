// Package social measures a repository's footprint outside GitHub: forum and
// link-aggregator discussion, Q&A traffic and package-registry downloads.
//
// Every source is queried once. A failing source contributes zero and never
// fails the whole fetch.
package social

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kevinmichaelchen/repoboard/internal/httpx"
	"github.com/kevinmichaelchen/repoboard/internal/logging"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// Endpoints are the base URLs of each signal source.
type Endpoints struct {
	Reddit        string
	HackerNews    string
	StackExchange string
	NPM           string
	PyPI          string
	PyPIStats     string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Reddit:        "https://www.reddit.com",
		HackerNews:    "https://hn.algolia.com",
		StackExchange: "https://api.stackexchange.com",
		NPM:           "https://api.npmjs.org",
		PyPI:          "https://pypi.org",
		PyPIStats:     "https://pypistats.org",
	}
}

// Aggregator fetches SocialSignals for one repository at a time.
type Aggregator struct {
	http       *httpx.Client
	ep         Endpoints
	now        func() time.Time
	redditWait time.Duration
}

type Option func(*Aggregator)

// WithRedditDelay pauses between the successive Reddit search terms.
func WithRedditDelay(d time.Duration) Option {
	return func(a *Aggregator) { a.redditWait = d }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(h *httpx.Client, ep Endpoints, opts ...Option) *Aggregator {
	a := &Aggregator{http: h, ep: ep, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// PackageName guesses a registry package name from the repository name.
func PackageName(repoName string) string {
	return strings.ReplaceAll(strings.ToLower(repoName), "-", "_")
}

// Fetch queries every source concurrently and returns a complete record. Each
// goroutine owns the fields it writes, so no locking is needed.
func (a *Aggregator) Fetch(ctx context.Context, repo models.Repo) models.SocialSignals {
	logger := logging.FromContext(ctx).With("repo", repo.FullName)
	out := models.SocialSignals{RepoID: repo.ID}
	pkg := PackageName(repo.Name)

	var g errgroup.Group
	g.Go(func() error {
		out.RedditMentions, out.RedditUpvotes = a.reddit(ctx, repo)
		return nil
	})
	g.Go(func() error {
		out.HNMentions, out.HNPoints = a.hackerNews(ctx, repo)
		return nil
	})
	g.Go(func() error {
		out.StackOverflowCount, out.StackOverflowViews = a.stackOverflow(ctx, repo)
		return nil
	})
	g.Go(func() error {
		n, err := a.npm(ctx, pkg)
		if err != nil {
			logger.Debug("npm downloads unavailable", "package", pkg, "err", err)
		}
		out.NPMDownloads = n
		return nil
	})
	g.Go(func() error {
		n, err := a.pypi(ctx, pkg)
		if err != nil {
			logger.Debug("pypi downloads unavailable", "package", pkg, "err", err)
		}
		out.PyPIDownloads = n
		return nil
	})
	_ = g.Wait()

	out.Aggregate = Aggregate(out)
	out.FetchedAt = a.now().UTC()
	return out
}

// Aggregate reduces raw counts to a score in [0,100].
func Aggregate(s models.SocialSignals) float64 {
	score := min(20, float64(s.RedditUpvotes)/100*20)
	score += min(25, float64(s.HNPoints)/50*25)
	score += min(20, float64(s.StackOverflowViews)/10000*20)
	score += min(15, float64(s.NPMDownloads)/100000*15)
	score += min(15, float64(s.PyPIDownloads)/100000*15)
	score += min(5, float64(s.RedditMentions+s.HNMentions)/10)
	return min(100, max(0, score))
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Subreddit string `json:"subreddit"`
				Ups       int    `json:"ups"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (a *Aggregator) reddit(ctx context.Context, repo models.Repo) (mentions, upvotes int) {
	logger := logging.FromContext(ctx)
	terms := []string{repo.URL, "r/" + repo.Name, repo.Name}
	for i, term := range terms {
		if term == "" || term == "r/" {
			continue
		}
		if i > 0 && a.redditWait > 0 {
			select {
			case <-ctx.Done():
				return mentions, upvotes
			case <-time.After(a.redditWait):
			}
		}
		q := url.Values{"q": {term}, "limit": {"25"}, "sort": {"relevance"}}
		var res redditListing
		if err := a.http.Get(ctx, a.ep.Reddit+"/search.json?"+q.Encode(), &res); err != nil {
			logger.Debug("reddit search failed", "term", term, "err", err)
			continue
		}
		for _, c := range res.Data.Children {
			upvotes += c.Data.Ups
			mentions++
		}
	}
	return mentions, upvotes
}

type hnHit struct {
	URL         string `json:"url"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
}

func (a *Aggregator) hnSearch(ctx context.Context, query string, perPage int) ([]hnHit, error) {
	q := url.Values{"query": {query}, "tags": {"story"}, "hitsPerPage": {fmt.Sprint(perPage)}}
	var res struct {
		Hits []hnHit `json:"hits"`
	}
	if err := a.http.Get(ctx, a.ep.HackerNews+"/api/v1/search?"+q.Encode(), &res); err != nil {
		return nil, err
	}
	return res.Hits, nil
}

// hackerNews counts every story matching the URL, plus name matches whose link
// points at the repository.
func (a *Aggregator) hackerNews(ctx context.Context, repo models.Repo) (mentions, points int) {
	logger := logging.FromContext(ctx)
	if hits, err := a.hnSearch(ctx, repo.URL, 50); err != nil {
		logger.Debug("hn url search failed", "err", err)
	} else {
		for _, h := range hits {
			mentions++
			points += h.Points
		}
	}

	if repo.Name == "" {
		return mentions, points
	}
	hits, err := a.hnSearch(ctx, repo.Name, 20)
	if err != nil {
		logger.Debug("hn name search failed", "err", err)
		return mentions, points
	}
	for _, h := range hits {
		if (repo.URL != "" && strings.Contains(h.URL, repo.URL)) || strings.Contains(h.URL, repo.Name) {
			mentions++
			points += h.Points
		}
	}
	return mentions, points
}

// stackOverflow returns the number of matching questions and the views of
// those whose title or body names the repository.
func (a *Aggregator) stackOverflow(ctx context.Context, repo models.Repo) (questions, views int) {
	query := repo.Name + " github.com"
	if words := strings.Fields(repo.Description); len(words) > 0 {
		query += " " + strings.Join(words[:min(5, len(words))], " ")
	}
	q := url.Values{
		"q":        {query},
		"site":     {"stackoverflow"},
		"pagesize": {"50"},
		"sort":     {"relevance"},
		"order":    {"desc"},
	}
	var res struct {
		Items []struct {
			Title     string `json:"title"`
			Body      string `json:"body"`
			ViewCount int    `json:"view_count"`
		} `json:"items"`
	}
	if err := a.http.Get(ctx, a.ep.StackExchange+"/2.3/search/advanced?"+q.Encode(), &res); err != nil {
		logging.FromContext(ctx).Debug("stackexchange search failed", "err", err)
		return 0, 0
	}
	name := strings.ToLower(repo.Name)
	for _, it := range res.Items {
		if name != "" && (strings.Contains(strings.ToLower(it.Title), name) || strings.Contains(strings.ToLower(it.Body), name)) {
			views += it.ViewCount
		}
	}
	return len(res.Items), views
}

func (a *Aggregator) npm(ctx context.Context, pkg string) (int, error) {
	if pkg == "" {
		return 0, nil
	}
	var res struct {
		Downloads int `json:"downloads"`
	}
	if err := a.http.Get(ctx, a.ep.NPM+"/downloads/point/last-week/"+url.PathEscape(pkg), &res); err != nil {
		return 0, err
	}
	return res.Downloads, nil
}

// pypi confirms the package exists before asking pypistats for its downloads.
func (a *Aggregator) pypi(ctx context.Context, pkg string) (int, error) {
	if pkg == "" {
		return 0, nil
	}
	var meta struct {
		Info map[string]any `json:"info"`
	}
	if err := a.http.Get(ctx, a.ep.PyPI+"/pypi/"+url.PathEscape(pkg)+"/json", &meta); err != nil {
		return 0, err
	}
	if meta.Info == nil {
		return 0, nil
	}
	var stats struct {
		Data struct {
			LastWeek int `json:"last_week"`
		} `json:"data"`
	}
	if err := a.http.Get(ctx, a.ep.PyPIStats+"/api/packages/"+url.PathEscape(pkg)+"/recent", &stats); err != nil {
		return 0, err
	}
	return stats.Data.LastWeek, nil
}
