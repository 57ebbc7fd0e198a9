package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/repoboard/internal/config"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRepo(t *testing.T, s Store, name string, stars int) models.Repo {
	t.Helper()
	r := models.Repo{
		URL:       "https://github.com/acme/" + name,
		Owner:     "acme",
		Name:      name,
		FullName:  "acme/" + name,
		Stars:     stars,
		Topics:    []string{"go"},
		Languages: map[string]int{"Go": 100},
		FileTree:  []string{"main.go"},
		CreatedAt: testNow.AddDate(-1, 0, 0),
		UpdatedAt: testNow.AddDate(0, 0, -3),
		PushedAt:  testNow.AddDate(0, 0, -3),
	}
	require.NoError(t, s.UpsertRepo(context.Background(), &r))
	require.NotZero(t, r.ID)
	return r
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "oracle"})
	assert.Error(t, err)

	_, err = Open(context.Background(), &config.Config{StoreDriver: "postgres"})
	assert.Error(t, err)
}

func TestUpsertRepoByURL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := seedRepo(t, s, "lib", 10)

	again := first
	again.ID = 0
	again.Stars = 99
	again.Topics = []string{"go", "cli"}
	require.NoError(t, s.UpsertRepo(ctx, &again))
	assert.Equal(t, first.ID, again.ID)

	got, err := s.GetRepo(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, got.Stars)
	assert.Equal(t, []string{"go", "cli"}, got.Topics)
	assert.Equal(t, map[string]int{"Go": 100}, got.Languages)
	assert.True(t, got.UpdatedAt.Equal(first.UpdatedAt), "upstream timestamps are kept")
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt))

	all, err := s.ListRepos(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Error(t, s.UpsertRepo(ctx, &models.Repo{}))
}

func TestFindRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := seedRepo(t, s, "lib", 10)

	got, err := s.FindRepo(ctx, "ACME/lib")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	got, err = s.FindRepo(ctx, r.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = s.FindRepo(ctx, "nobody/nothing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetRepo(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReposLimit(t *testing.T) {
	s := newTestStore(t)
	for _, n := range []string{"a", "b", "c"} {
		seedRepo(t, s, n, 1)
	}
	got, err := s.ListRepos(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "acme/a", got[0].FullName)
}

func TestPerRepoUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := seedRepo(t, s, "lib", 10)

	_, err := s.GetSummary(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveSummary(ctx, &models.Summary{RepoID: r.ID, Synopsis: "one", Tags: []string{"x"}}))
	require.NoError(t, s.SaveSummary(ctx, &models.Summary{RepoID: r.ID, Synopsis: "two", Tags: []string{"y"}}))
	sum, err := s.GetSummary(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "two", sum.Synopsis)
	assert.Equal(t, []string{"y"}, sum.Tags)

	require.NoError(t, s.SaveInsight(ctx, &models.Insight{RepoID: r.ID, Total: 0.4}))
	require.NoError(t, s.SaveInsight(ctx, &models.Insight{RepoID: r.ID, Total: 0.6}))
	in, err := s.GetInsight(ctx, r.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, in.Total, 1e-9)

	_, err = s.GetSocialSignals(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.SaveSocialSignals(ctx, &models.SocialSignals{RepoID: r.ID, HNPoints: 5, Aggregate: 2.5, FetchedAt: testNow}))
	sig, err := s.GetSocialSignals(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, sig.HNPoints)

	require.NoError(t, s.SaveEmbedding(ctx, &models.Embedding{RepoID: r.ID, Model: "m", Vector: []float32{1, 2}}))
	require.NoError(t, s.SaveEmbedding(ctx, &models.Embedding{RepoID: r.ID, Model: "m", Vector: []float32{3, 4}}))
	embs, err := s.ListEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, []float32{3, 4}, embs[0].Vector)
}

func TestReplaceLabels(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := seedRepo(t, s, "lib", 10)

	first := []models.Label{
		{Type: models.LabelCategory, Value: "CLI Tool"},
		{Type: models.LabelQuality, Facet: "maintenance", Value: "Active"},
	}
	require.NoError(t, s.ReplaceLabels(ctx, r.ID, first))
	require.NoError(t, s.ReplaceLabels(ctx, r.ID, []models.Label{{Type: models.LabelCategory, Value: "Library"}}))

	got, err := s.ListLabels(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Library", got[0].Value)
	assert.Equal(t, r.ID, got[0].RepoID)

	require.NoError(t, s.ReplaceLabels(ctx, r.ID, nil))
	got, err = s.ListLabels(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScores(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedRepo(t, s, "a", 1)
	b := seedRepo(t, s, "b", 1)

	require.NoError(t, s.SaveScore(ctx, &models.CurationScore{RepoID: a.ID, Total: 0.2, RunID: "r1"}))
	require.NoError(t, s.SaveScore(ctx, &models.CurationScore{RepoID: b.ID, Total: 0.5, RunID: "r1"}))
	require.NoError(t, s.SaveScore(ctx, &models.CurationScore{RepoID: a.ID, Total: 0.9, RunID: "r2"}))

	got, err := s.ListScores(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].RepoID)
	assert.Equal(t, "r2", got[0].RunID)
	assert.Equal(t, b.ID, got[1].RepoID)
}

func TestBoards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedRepo(t, s, "a", 1)
	b := seedRepo(t, s, "b", 1)

	board := models.Board{Name: "CLI Tools", Category: "Tools"}
	require.NoError(t, s.CreateBoard(ctx, &board))
	require.NotZero(t, board.ID)
	assert.Error(t, s.CreateBoard(ctx, &models.Board{Name: "CLI Tools"}))

	require.NoError(t, s.CreateBoard(ctx, &models.Board{Name: "AI", Category: "Artificial"}))

	require.NoError(t, s.AddBoardItem(ctx, &models.BoardItem{BoardID: board.ID, RepoID: a.ID}))
	require.NoError(t, s.AddBoardItem(ctx, &models.BoardItem{BoardID: board.ID, RepoID: b.ID}))
	items, err := s.ListBoardItems(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []uint{a.ID, b.ID}, []uint{items[0].RepoID, items[1].RepoID})
	assert.Equal(t, []int{1, 2}, []int{items[0].Rank, items[1].Rank})

	// re-adding moves the item instead of duplicating it
	require.NoError(t, s.AddBoardItem(ctx, &models.BoardItem{BoardID: board.ID, RepoID: a.ID, Rank: 5, Note: "moved"}))
	items, err = s.ListBoardItems(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].RepoID)
	assert.Equal(t, "moved", items[1].Note)

	got, err := s.GetBoard(ctx, "CLI Tools")
	require.NoError(t, err)
	assert.Equal(t, board.ID, got.ID)
	_, err = s.GetBoard(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	boards, err := s.ListBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.Equal(t, "AI", boards[0].Name)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedRepo(t, s, "a", 1)
	b := seedRepo(t, s, "b", 1)

	require.NoError(t, s.ReplaceLabels(ctx, a.ID, []models.Label{
		{Type: models.LabelCategory, Value: "CLI Tool"},
		{Type: models.LabelCategory, Value: "Library"},
		{Type: models.LabelDiscovery, Value: "Hidden Gem"},
	}))
	require.NoError(t, s.ReplaceLabels(ctx, b.ID, []models.Label{
		{Type: models.LabelCategory, Value: "Library"},
	}))
	require.NoError(t, s.SaveInsight(ctx, &models.Insight{RepoID: a.ID}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Repos)
	assert.Equal(t, int64(4), st.Labels)
	assert.Equal(t, int64(1), st.Insights)
	assert.Zero(t, st.Boards)
	assert.Equal(t, map[string]int64{"CLI Tool": 1, "Library": 2}, st.Categories)
}

func TestCategoriesOf(t *testing.T) {
	got := categoriesOf([]models.Label{
		{Type: models.LabelCategory, Value: "Library"},
		{Type: models.LabelCategory, Value: "Library"},
		{Type: models.LabelTechnical, Value: "Go"},
	})
	assert.Equal(t, map[string]struct{}{"Library": {}}, got)
}
