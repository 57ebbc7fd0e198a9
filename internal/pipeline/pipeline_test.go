package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/repoboard/internal/github"
	"github.com/kevinmichaelchen/repoboard/internal/insight"
	"github.com/kevinmichaelchen/repoboard/internal/labeler"
	"github.com/kevinmichaelchen/repoboard/internal/models"
	"github.com/kevinmichaelchen/repoboard/internal/ranker"
	"github.com/kevinmichaelchen/repoboard/internal/store"
	"github.com/kevinmichaelchen/repoboard/internal/summarizer"
	"github.com/kevinmichaelchen/repoboard/internal/usecase"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type fakeSearcher struct {
	items []github.SearchItem
}

func (f *fakeSearcher) Search(_ context.Context, _, _ string, page int) ([]github.SearchItem, error) {
	if page > 1 {
		return nil, nil
	}
	return f.items, nil
}

type fakeDetails struct {
	fail map[string]bool
}

func (f fakeDetails) Details(_ context.Context, owner, name string) (*github.Details, error) {
	if f.fail[owner+"/"+name] {
		return nil, errors.New("graphql down")
	}
	return &github.Details{
		Readme:    "# " + name + "\n\nInstall with go install. Usage: run it.",
		Languages: map[string]int{"Go": 1000},
		FileTree:  []string{"go.mod", "main.go", "README.md"},
	}, nil
}

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i + 1), 1}
	}
	return out, nil
}

type fakeSocial struct {
	calls int
}

func (f *fakeSocial) Fetch(_ context.Context, r models.Repo) models.SocialSignals {
	f.calls++
	return models.SocialSignals{HNPoints: r.Stars, Aggregate: 42, FetchedAt: testNow}
}

// flakyStore fails repository upserts for one URL.
type flakyStore struct {
	store.Store
	failURL string
}

func (s flakyStore) UpsertRepo(ctx context.Context, r *models.Repo) error {
	if r.URL == s.failURL {
		return errors.New("disk full")
	}
	return s.Store.UpsertRepo(ctx, r)
}

func searchItem(name string, stars int) github.SearchItem {
	return github.SearchItem{
		HTMLURL:     "https://github.com/acme/" + name,
		FullName:    "acme/" + name,
		Name:        name,
		Description: name + " is a Go library",
		Stars:       stars,
		Forks:       stars / 10,
		Language:    "Go",
		Topics:      []string{"go", "cli"},
		CreatedAt:   testNow.AddDate(-1, 0, 0),
		UpdatedAt:   testNow.AddDate(0, 0, -2),
		PushedAt:    testNow.AddDate(0, 0, -2),
	}
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newDeps(t *testing.T, items ...github.SearchItem) Deps {
	t.Helper()
	return Deps{
		Store:          newStore(t),
		Session:        github.NewSession(&fakeSearcher{items: items}, github.WithDelays(0, 0), github.WithClock(clock)),
		Details:        fakeDetails{fail: map[string]bool{"acme/b": true}},
		Summarizer:     summarizer.New(nil, clock),
		Labeler:        labeler.New(nil, clock),
		Scorer:         insight.NewScorer(clock),
		Embedder:       fakeEmbedder{},
		EmbeddingModel: "test-embed",
		Now:            clock,
	}
}

var plan = github.Plan{Languages: []string{"go"}, PerCategoryLimit: 10}

func TestCurate(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000), searchItem("b", 300), searchItem("c", 40))

	sum, err := Curate(ctx, d, Options{Plan: plan, Embed: true, Preset: ranker.Engine})
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 3, sum.Fetched)
	assert.Equal(t, 3, sum.Ingested)
	assert.Equal(t, 3, sum.Summarized)
	assert.Equal(t, 3, sum.Labeled)
	assert.Equal(t, 3, sum.Scored)
	assert.Equal(t, 3, sum.Embedded)
	assert.Equal(t, 3, sum.Ranked)
	assert.Zero(t, sum.Skipped)

	a, err := d.Store.FindRepo(ctx, "acme/a")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Go": 1000}, a.Languages)
	assert.True(t, a.RefreshedAt.Equal(testNow))

	// details failure degrades the record instead of skipping it
	b, err := d.Store.FindRepo(ctx, "acme/b")
	require.NoError(t, err)
	assert.Empty(t, b.Readme)

	s, err := d.Store.GetSummary(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a is a Go library", s.Synopsis)
	assert.Equal(t, "CLI Tool", s.Category)

	labels, err := d.Store.ListLabels(ctx, a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, labels)
	assert.Equal(t, models.SourceHeuristic, labels[0].Source)

	in, err := d.Store.GetInsight(ctx, a.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, in.Total, 0.0)
	assert.LessOrEqual(t, in.Total, 1.0)

	scores, err := d.Store.ListScores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	for _, s := range scores {
		assert.Equal(t, sum.RunID, s.RunID)
		assert.Equal(t, string(ranker.Engine), s.Preset)
		assert.False(t, s.HasSocial)
	}

	embs, err := d.Store.ListEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, embs, 3)
	assert.Equal(t, "test-embed", embs[0].Model)
}

func TestCurateIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000))

	_, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)

	// a new session sees the same repository again
	d.Session = github.NewSession(&fakeSearcher{items: []github.SearchItem{searchItem("a", 6000)}}, github.WithDelays(0, 0), github.WithClock(clock))
	sum, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Ingested)

	repos, err := d.Store.ListRepos(ctx, 0)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, 6000, repos[0].Stars)
}

func TestCurateSkipsFailedRecord(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000), searchItem("b", 300))
	d.Store = flakyStore{Store: d.Store, failURL: "https://github.com/acme/a"}
	d.Embedder = fakeEmbedder{err: errors.New("quota")}

	sum, err := Curate(ctx, d, Options{Plan: plan, Embed: true})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Fetched)
	assert.Equal(t, 1, sum.Ingested)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Ranked)
	assert.Zero(t, sum.Embedded)
}

func TestCurateRequiresCollaborators(t *testing.T) {
	_, err := Curate(context.Background(), Deps{}, Options{})
	assert.Error(t, err)
}

func TestCurateUsesStoredSignals(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000))
	_, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)

	a, err := d.Store.FindRepo(ctx, "acme/a")
	require.NoError(t, err)
	require.NoError(t, d.Store.SaveSocialSignals(ctx, &models.SocialSignals{RepoID: a.ID, Aggregate: 80, FetchedAt: testNow}))

	d.Session = github.NewSession(&fakeSearcher{items: []github.SearchItem{searchItem("a", 5000)}}, github.WithDelays(0, 0), github.WithClock(clock))
	_, err = Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)

	scores, err := d.Store.ListScores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.True(t, scores[0].HasSocial)
	assert.InDelta(t, 0.8, scores[0].Social, 1e-9)
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000), searchItem("b", 300), searchItem("c", 40))
	_, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)

	recs, err := Recommend(ctx, d, RecommendOptions{Limit: 2, Languages: []string{"Go"}, Topics: []string{"cli"}})
	require.NoError(t, err)

	assert.Len(t, recs.Views[ranker.ViewTopOverall], 2)
	assert.Equal(t, "acme/a", recs.Views[ranker.ViewTopOverall][0].Name)
	assert.Len(t, recs.Views["language_go"], 2)
	assert.Len(t, recs.Views["topic_cli"], 2)
	assert.Equal(t, []string{"language_go", "topic_cli"}, recs.Order[len(recs.Order)-2:])

	secs := recs.Sections()
	require.NotEmpty(t, secs)
	assert.Equal(t, ranker.ViewTopOverall, secs[0].Key)
}

func TestRefreshSignals(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000), searchItem("b", 300))
	_, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)

	_, err = RefreshSignals(ctx, d, SignalOptions{})
	assert.Error(t, err)

	social := &fakeSocial{}
	d.Social = social
	n, err := RefreshSignals(ctx, d, SignalOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = RefreshSignals(ctx, d, SignalOptions{Stale: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the fresh record is skipped")
	assert.Equal(t, 2, social.calls)

	a, err := d.Store.FindRepo(ctx, "acme/a")
	require.NoError(t, err)
	sig, err := d.Store.GetSocialSignals(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5000, sig.HNPoints)
	assert.Equal(t, a.ID, sig.RepoID)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000), searchItem("b", 300))
	_, err := Curate(ctx, d, Options{Plan: plan, Embed: true})
	require.NoError(t, err)

	_, err = Search(ctx, d, "cli", usecase.Options{})
	assert.Error(t, err)

	d.Finder = usecase.NewFinder(nil, nil)
	res, err := Search(ctx, d, "cli", usecase.Options{})
	require.NoError(t, err)
	assert.True(t, res.Fallback)

	a, err := d.Store.FindRepo(ctx, "acme/a")
	require.NoError(t, err)
	b, err := d.Store.FindRepo(ctx, "acme/b")
	require.NoError(t, err)
	var ids []uint
	for _, m := range res.Recommendations {
		ids = append(ids, m.RepoID)
	}
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, ids)
}

func TestSearchNeedsSummaries(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000), searchItem("b", 300))
	d.Summarizer = nil
	d.Finder = usecase.NewFinder(nil, nil)
	sum, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)
	assert.Zero(t, sum.Summarized)

	res, err := Search(ctx, d, "cli", usecase.Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)

	b, err := d.Store.FindRepo(ctx, "acme/b")
	require.NoError(t, err)
	require.NoError(t, d.Store.SaveSummary(ctx, &models.Summary{RepoID: b.ID, Synopsis: "a CLI helper"}))

	res, err = Search(ctx, d, "cli", usecase.Options{})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, b.ID, res.Recommendations[0].RepoID)
}

func TestCurateKeepsExistingSummary(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000))
	_, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)

	a, err := d.Store.FindRepo(ctx, "acme/a")
	require.NoError(t, err)
	require.NoError(t, d.Store.SaveSummary(ctx, &models.Summary{RepoID: a.ID, Synopsis: "hand written"}))

	d.Session = github.NewSession(&fakeSearcher{items: []github.SearchItem{searchItem("a", 5000)}}, github.WithDelays(0, 0), github.WithClock(clock))
	sum, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)
	assert.Zero(t, sum.Summarized)

	s, err := d.Store.GetSummary(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "hand written", s.Synopsis)
}

func TestBoards(t *testing.T) {
	ctx := context.Background()
	d := newDeps(t, searchItem("a", 5000), searchItem("b", 300))
	_, err := Curate(ctx, d, Options{Plan: plan})
	require.NoError(t, err)

	require.NoError(t, d.Store.CreateBoard(ctx, &models.Board{Name: "CLI", Category: "Tools"}))
	_, err = AddToBoard(ctx, d.Store, "CLI", "acme/b", 0, "")
	require.NoError(t, err)
	_, err = AddToBoard(ctx, d.Store, "CLI", "https://github.com/acme/a", 0, "")
	require.NoError(t, err)

	_, err = AddToBoard(ctx, d.Store, "missing", "acme/a", 0, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = AddToBoard(ctx, d.Store, "CLI", "acme/zzz", 0, "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	docs, err := BoardDocs(ctx, d.Store)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, docs[0].Items, 2)
	assert.Equal(t, "acme/b", docs[0].Items[0].Repo.FullName)
	require.NotNil(t, docs[0].Items[0].Summary)
	assert.Equal(t, "b is a Go library", docs[0].Items[0].Summary.Synopsis)

	_, err = BoardDocs(ctx, d.Store, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmbeddingText(t *testing.T) {
	r := models.Repo{FullName: "acme/a", Description: "desc"}
	assert.Equal(t, "acme/a: desc", EmbeddingText(r, nil))
	assert.Equal(t, "acme/a: synopsis", EmbeddingText(r, &models.Summary{Synopsis: "synopsis"}))
	assert.True(t, strings.HasPrefix(EmbeddingText(r, &models.Summary{}), "acme/a: desc"))
}
