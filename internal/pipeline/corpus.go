package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/export"
	"github.com/kevinmichaelchen/repoboard/internal/logging"
	"github.com/kevinmichaelchen/repoboard/internal/models"
	"github.com/kevinmichaelchen/repoboard/internal/ranker"
	"github.com/kevinmichaelchen/repoboard/internal/store"
	"github.com/kevinmichaelchen/repoboard/internal/usecase"
)

// LoadCorpus reads every stored repository with whatever has been derived
// for it. Missing summaries, insights or signals stay nil.
func LoadCorpus(ctx context.Context, st store.Store) ([]ranker.Entry, error) {
	logger := logging.FromContext(ctx)
	repos, err := st.ListRepos(ctx, 0)
	if err != nil {
		return nil, err
	}

	entries := make([]ranker.Entry, 0, len(repos))
	for _, r := range repos {
		e := ranker.Entry{Repo: r}
		var errs []error

		e.Summary, err = optional(st.GetSummary(ctx, r.ID))
		errs = append(errs, err)
		e.Insight, err = optional(st.GetInsight(ctx, r.ID))
		errs = append(errs, err)
		e.Social, err = optional(st.GetSocialSignals(ctx, r.ID))
		errs = append(errs, err)
		e.Labels, err = st.ListLabels(ctx, r.ID)
		errs = append(errs, err)

		if err := errors.Join(errs...); err != nil {
			logger.Warn("partial record", "repo", r.FullName, "err", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type RecommendOptions struct {
	Preset        ranker.Preset
	Limit         int
	Thresholds    ranker.Thresholds
	Languages     []string
	Topics        []string
	Organizations []string
}

// Recommendations are named views plus their presentation order.
type Recommendations struct {
	Views map[string][]ranker.Recommendation
	Order []string
}

// Sections orders the views for export.
func (r Recommendations) Sections() []export.Section {
	return export.Sections(r.Views, r.Order)
}

// Recommend builds the standard views over the stored corpus, plus one view
// per requested language, topic and organization.
func Recommend(ctx context.Context, d Deps, opts RecommendOptions) (Recommendations, error) {
	entries, err := LoadCorpus(ctx, d.Store)
	if err != nil {
		return Recommendations{}, fmt.Errorf("loading corpus: %w", err)
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Thresholds == (ranker.Thresholds{}) {
		opts.Thresholds = ranker.DefaultThresholds()
	}

	table := ranker.Build(entries, opts.Preset, d.now())
	out := Recommendations{
		Views: table.All(opts.Limit, opts.Thresholds),
		Order: append([]string(nil), ranker.ViewOrder...),
	}
	add := func(prefix, value string, recs []ranker.Recommendation) {
		key := prefix + "_" + strings.ToLower(value)
		out.Views[key] = recs
		out.Order = append(out.Order, key)
	}
	for _, l := range opts.Languages {
		add("language", l, table.ByLanguage(l, opts.Limit))
	}
	for _, t := range opts.Topics {
		add("topic", t, table.ByTopic(t, opts.Limit))
	}
	for _, o := range opts.Organizations {
		add("organization", o, table.ByOrganization(o, opts.Limit))
	}

	logging.FromContext(ctx).Info("recommendations built", "repos", table.Len(), "views", len(out.Views), "preset", table.Preset())
	return out, nil
}

type SignalOptions struct {
	// Limit caps how many repositories are refreshed; <= 0 means all.
	Limit int
	// Stale skips repositories whose signals are younger than this.
	Stale time.Duration
}

// RefreshSignals re-queries social platforms for stored repositories and
// returns how many records were written.
func RefreshSignals(ctx context.Context, d Deps, opts SignalOptions) (int, error) {
	if d.Social == nil {
		return 0, errors.New("signals: no social aggregator configured")
	}
	logger := logging.FromContext(ctx)
	progress := logging.NewProgress(logger)

	repos, err := d.Store.ListRepos(ctx, 0)
	if err != nil {
		return 0, err
	}
	now := d.now()

	n := 0
	for _, r := range repos {
		if opts.Limit > 0 && n >= opts.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if opts.Stale > 0 {
			prev, err := optional(d.Store.GetSocialSignals(ctx, r.ID))
			if err == nil && prev != nil && now.Sub(prev.FetchedAt) < opts.Stale {
				continue
			}
		}

		sig := d.Social.Fetch(ctx, r)
		sig.RepoID = r.ID
		if err := d.Store.SaveSocialSignals(ctx, &sig); err != nil {
			logger.Warn("storing social signals", "repo", r.FullName, "err", err)
			continue
		}
		logger.Debug("signals", "repo", r.FullName, "score", sig.Aggregate)
		n++
	}

	progress.Done("social signals refreshed", "repos", n)
	return n, nil
}

// Search runs the use-case finder over every stored repository that has a
// summary, using stored embeddings for preselection.
func Search(ctx context.Context, d Deps, query string, opts usecase.Options) (usecase.Result, error) {
	if d.Finder == nil {
		return usecase.Result{}, errors.New("search: no use-case finder configured")
	}
	entries, err := LoadCorpus(ctx, d.Store)
	if err != nil {
		return usecase.Result{}, fmt.Errorf("loading corpus: %w", err)
	}
	embs, err := d.Store.ListEmbeddings(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("loading embeddings", "err", err)
	}
	vectors := make(map[uint][]float32, len(embs))
	for _, e := range embs {
		vectors[e.RepoID] = e.Vector
	}

	cands := make([]usecase.Candidate, 0, len(entries))
	for _, e := range entries {
		cands = append(cands, usecase.Candidate{Repo: e.Repo, Summary: e.Summary, Vector: vectors[e.Repo.ID]})
	}
	return d.Finder.Find(ctx, query, cands, opts), nil
}

// AddToBoard places the repository named by ref (URL or owner/name) on the
// named board.
func AddToBoard(ctx context.Context, st store.Store, boardName, ref string, rank int, note string) (models.BoardItem, error) {
	b, err := st.GetBoard(ctx, boardName)
	if err != nil {
		return models.BoardItem{}, fmt.Errorf("board %q: %w", boardName, err)
	}
	r, err := st.FindRepo(ctx, ref)
	if err != nil {
		return models.BoardItem{}, fmt.Errorf("repository %q: %w", ref, err)
	}
	it := models.BoardItem{BoardID: b.ID, RepoID: r.ID, Rank: rank, Note: note}
	if err := st.AddBoardItem(ctx, &it); err != nil {
		return it, fmt.Errorf("adding %s to %q: %w", r.FullName, boardName, err)
	}
	return it, nil
}

// BoardDocs loads the named boards, or every board when names is empty,
// with their items in rank order.
func BoardDocs(ctx context.Context, st store.Store, names ...string) ([]export.BoardDoc, error) {
	var boards []models.Board
	if len(names) == 0 {
		all, err := st.ListBoards(ctx)
		if err != nil {
			return nil, err
		}
		boards = all
	}
	for _, n := range names {
		b, err := st.GetBoard(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("board %q: %w", n, err)
		}
		boards = append(boards, b)
	}

	docs := make([]export.BoardDoc, 0, len(boards))
	for _, b := range boards {
		items, err := st.ListBoardItems(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("items of %q: %w", b.Name, err)
		}
		doc := export.BoardDoc{Board: b, Items: make([]export.BoardEntry, 0, len(items))}
		for _, it := range items {
			r, err := st.GetRepo(ctx, it.RepoID)
			if err != nil {
				logging.FromContext(ctx).Warn("board item without repo", "board", b.Name, "repo_id", it.RepoID, "err", err)
				continue
			}
			s, _ := optional(st.GetSummary(ctx, r.ID))
			doc.Items = append(doc.Items, export.BoardEntry{Repo: r, Summary: s})
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
