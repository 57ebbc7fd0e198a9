package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/repoboard/internal/httpx"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func endpointsFor(base string) Endpoints {
	return Endpoints{Reddit: base, HackerNews: base, StackExchange: base, NPM: base, PyPI: base, PyPIStats: base}
}

func testRepo() models.Repo {
	return models.Repo{
		ID:          7,
		URL:         "https://github.com/acme/fast-json",
		Name:        "fast-json",
		FullName:    "acme/fast-json",
		Description: "A fast JSON parser for everyone",
	}
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "fast_json", PackageName("Fast-JSON"))
	assert.Equal(t, "", PackageName(""))
}

func TestAggregate(t *testing.T) {
	assert.Zero(t, Aggregate(models.SocialSignals{}))

	half := models.SocialSignals{RedditUpvotes: 50, HNPoints: 25, StackOverflowViews: 5000, NPMDownloads: 50000, PyPIDownloads: 50000}
	assert.InDelta(t, 10+12.5+10+7.5+7.5, Aggregate(half), 1e-9)

	capped := models.SocialSignals{
		RedditUpvotes: 1e6, HNPoints: 1e6, StackOverflowViews: 1e9,
		NPMDownloads: 1e9, PyPIDownloads: 1e9, RedditMentions: 500, HNMentions: 500,
	}
	assert.InDelta(t, 100.0, Aggregate(capped), 1e-9)

	assert.InDelta(t, 2.5, Aggregate(models.SocialSignals{RedditMentions: 20, HNMentions: 5}), 1e-9)
}

func TestFetchAllSourcesFailing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAggregator(httpx.NewClient(time.Second, nil), endpointsFor(srv.URL), WithClock(func() time.Time { return testNow }))
	got := a.Fetch(context.Background(), testRepo())

	assert.Equal(t, models.SocialSignals{RepoID: 7, FetchedAt: testNow}, got)
	assert.Positive(t, calls.Load())
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	a := NewAggregator(httpx.NewClient(200*time.Millisecond, nil), endpointsFor(base), WithClock(func() time.Time { return testNow }))
	got := a.Fetch(context.Background(), testRepo())
	assert.Zero(t, got.Aggregate)
	assert.Zero(t, got.RedditMentions+got.HNMentions+got.StackOverflowCount+got.NPMDownloads+got.PyPIDownloads)
}

func TestFetch(t *testing.T) {
	repo := testRepo()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body any
		switch {
		case r.URL.Path == "/search.json":
			body = map[string]any{"data": map[string]any{"children": []any{
				map[string]any{"data": map[string]any{"subreddit": "golang", "ups": 40}},
			}}}
		case r.URL.Path == "/api/v1/search":
			q := r.URL.Query().Get("query")
			hits := []any{map[string]any{"url": repo.URL, "points": 30, "num_comments": 4}}
			if q == repo.Name {
				hits = append(hits, map[string]any{"url": "https://example.com/unrelated", "points": 999})
			}
			body = map[string]any{"hits": hits}
		case r.URL.Path == "/2.3/search/advanced":
			assert.True(t, strings.HasPrefix(r.URL.Query().Get("q"), "fast-json github.com A fast JSON parser for"))
			body = map[string]any{"items": []any{
				map[string]any{"title": "How to use fast-json?", "view_count": 4000},
				map[string]any{"title": "Other thing", "view_count": 100000},
			}}
		case r.URL.Path == "/downloads/point/last-week/fast_json":
			body = map[string]any{"downloads": 20000}
		case r.URL.Path == "/pypi/fast_json/json":
			body = map[string]any{"info": map[string]any{"name": "fast_json"}}
		case r.URL.Path == "/api/packages/fast_json/recent":
			body = map[string]any{"data": map[string]any{"last_day": 1, "last_week": 200000}}
		default:
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	a := NewAggregator(httpx.NewClient(time.Second, nil), endpointsFor(srv.URL), WithClock(func() time.Time { return testNow }))
	got := a.Fetch(context.Background(), repo)

	// three reddit terms, one post each
	assert.Equal(t, 3, got.RedditMentions)
	assert.Equal(t, 120, got.RedditUpvotes)
	// url search hit plus the matching name-search hit
	assert.Equal(t, 2, got.HNMentions)
	assert.Equal(t, 60, got.HNPoints)
	assert.Equal(t, 2, got.StackOverflowCount)
	assert.Equal(t, 4000, got.StackOverflowViews)
	assert.Equal(t, 20000, got.NPMDownloads)
	assert.Equal(t, 200000, got.PyPIDownloads)

	// 20 + 25 + 8 + 3 + 15 + 0.5
	require.InDelta(t, 71.5, got.Aggregate, 1e-9)
	assert.Equal(t, testNow, got.FetchedAt)
}
