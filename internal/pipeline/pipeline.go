// Package pipeline drives a curation run end to end: fetch, normalize,
// persist, summarize, label, score and rank. It also hosts the batch jobs that read the
// stored corpus back (recommendations, social refresh, boards, search).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kevinmichaelchen/repoboard/internal/embedding"
	"github.com/kevinmichaelchen/repoboard/internal/github"
	"github.com/kevinmichaelchen/repoboard/internal/insight"
	"github.com/kevinmichaelchen/repoboard/internal/labeler"
	"github.com/kevinmichaelchen/repoboard/internal/logging"
	"github.com/kevinmichaelchen/repoboard/internal/models"
	"github.com/kevinmichaelchen/repoboard/internal/ranker"
	"github.com/kevinmichaelchen/repoboard/internal/store"
	"github.com/kevinmichaelchen/repoboard/internal/summarizer"
	"github.com/kevinmichaelchen/repoboard/internal/usecase"
)

// DetailsFetcher loads the per-repository data search results lack.
type DetailsFetcher interface {
	Details(ctx context.Context, owner, name string) (*github.Details, error)
}

// SignalFetcher gathers a repository's social footprint. It never fails.
type SignalFetcher interface {
	Fetch(ctx context.Context, repo models.Repo) models.SocialSignals
}

// Deps are the collaborators of the batch jobs. Only Store is always
// required; each job checks for the ones it needs.
type Deps struct {
	Store          store.Store
	Session        *github.Session
	Details        DetailsFetcher
	Awesome        *github.AwesomeSource
	Summarizer     *summarizer.Summarizer
	Labeler        *labeler.Labeler
	Scorer         *insight.Scorer
	Social         SignalFetcher
	Embedder       embedding.Embedder
	EmbeddingModel string
	Finder         *usecase.Finder
	Now            func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

type Options struct {
	Plan         github.Plan
	AwesomeLists []string
	AwesomeLimit int
	// UseLLM asks the model for summaries and labels before falling back to
	// heuristics.
	UseLLM bool
	Embed  bool
	Preset ranker.Preset
}

// RunSummary is the operator-facing outcome of a curation run.
type RunSummary struct {
	RunID      string `json:"run_id"`
	Fetched    int    `json:"fetched"`
	Ingested   int    `json:"ingested"`
	Summarized int    `json:"summarized"`
	Labeled    int    `json:"labeled"`
	Scored     int    `json:"scored"`
	Embedded   int    `json:"embedded"`
	Ranked     int    `json:"ranked"`
	Skipped    int    `json:"skipped"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("fetched=%d ingested=%d summarized=%d labeled=%d scored=%d embedded=%d ranked=%d skipped=%d",
		s.Fetched, s.Ingested, s.Summarized, s.Labeled, s.Scored, s.Embedded, s.Ranked, s.Skipped)
}

// Curate runs one full curation pass. Upstream and LLM failures degrade the
// run; a repository that cannot be persisted is skipped. Only a missing
// collaborator or cancellation returns an error.
func Curate(ctx context.Context, d Deps, opts Options) (RunSummary, error) {
	logger := logging.FromContext(ctx)
	progress := logging.NewProgress(logger)
	sum := RunSummary{RunID: uuid.NewString()}

	if d.Store == nil || d.Session == nil {
		return sum, errors.New("curate: store and search session are required")
	}
	now := d.now()

	items := d.Session.Comprehensive(ctx, opts.Plan)
	if d.Awesome != nil && len(opts.AwesomeLists) > 0 {
		items = github.Dedupe(append(items, d.Awesome.Fetch(ctx, opts.AwesomeLists, opts.AwesomeLimit)...))
	}
	sum.Fetched = len(items)
	logger.Info("fetch complete", "run", sum.RunID, "repos", len(items))

	entries := make([]ranker.Entry, 0, len(items))
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		e, ok := d.ingest(ctx, it, opts.UseLLM, now, &sum)
		if !ok {
			sum.Skipped++
			continue
		}
		entries = append(entries, e)
		if (i+1)%50 == 0 || i+1 == len(items) {
			logger.Info("processed", "done", i+1, "total", len(items))
		}
	}

	if opts.Embed && d.Embedder != nil {
		sum.Embedded = d.embed(ctx, entries)
	}

	table := ranker.Build(entries, opts.Preset, now)
	for _, sc := range table.CurationScores(sum.RunID) {
		if err := d.Store.SaveScore(ctx, &sc); err != nil {
			logger.Warn("storing curation score", "repo_id", sc.RepoID, "err", err)
			continue
		}
		sum.Ranked++
	}

	progress.Done("curation complete", "run", sum.RunID, "summary", sum.String())
	return sum, nil
}

func (d Deps) ingest(ctx context.Context, it github.SearchItem, useLLM bool, now time.Time, sum *RunSummary) (ranker.Entry, bool) {
	logger := logging.FromContext(ctx)

	var details *github.Details
	if d.Details != nil {
		if owner, name, ok := strings.Cut(it.FullName, "/"); ok {
			det, err := d.Details.Details(ctx, owner, name)
			if err != nil {
				logger.Warn("details unavailable", "repo", it.FullName, "err", err)
			} else {
				details = det
			}
		}
	}

	repo := github.Normalize(it, details, now)
	if err := d.Store.UpsertRepo(ctx, &repo); err != nil {
		logger.Warn("skipping repo", "repo", repo.FullName, "err", err)
		return ranker.Entry{}, false
	}
	sum.Ingested++

	e := ranker.Entry{Repo: repo}
	summary, err := optional(d.Store.GetSummary(ctx, repo.ID))
	if err != nil {
		logger.Warn("loading summary", "repo", repo.FullName, "err", err)
	}
	e.Summary = summary

	// existing summaries are kept; only missing ones are generated
	if e.Summary == nil && err == nil && d.Summarizer != nil {
		gen, src := d.Summarizer.Summarize(ctx, repo, useLLM)
		if err := d.Store.SaveSummary(ctx, &gen); err != nil {
			logger.Warn("storing summary", "repo", repo.FullName, "err", err)
		} else {
			sum.Summarized++
			e.Summary = &gen
			logger.Debug("summarized", "repo", repo.FullName, "source", src)
		}
	}

	if d.Labeler != nil {
		bundle, src := d.Labeler.Label(ctx, repo, e.Summary, useLLM)
		rows := bundle.Rows(repo.ID, src)
		if err := d.Store.ReplaceLabels(ctx, repo.ID, rows); err != nil {
			logger.Warn("storing labels", "repo", repo.FullName, "err", err)
		} else {
			sum.Labeled++
			e.Labels = rows
		}
	}

	if d.Scorer != nil {
		in := d.Scorer.Score(repo, e.Summary)
		if err := d.Store.SaveInsight(ctx, &in); err != nil {
			logger.Warn("storing insight", "repo", repo.FullName, "err", err)
		} else {
			sum.Scored++
			e.Insight = &in
		}
	}

	// social signals are refreshed on their own schedule; use what exists
	if sig, err := optional(d.Store.GetSocialSignals(ctx, repo.ID)); err == nil {
		e.Social = sig
	}
	return e, true
}

// EmbeddingText is the text embedded for a repository: its name plus the
// summary synopsis, or the description when there is no summary.
func EmbeddingText(r models.Repo, s *models.Summary) string {
	text := r.Description
	if s != nil && s.Synopsis != "" {
		text = s.Synopsis
	}
	return fmt.Sprintf("%s: %s", r.FullName, text)
}

func (d Deps) embed(ctx context.Context, entries []ranker.Entry) int {
	if len(entries) == 0 {
		return 0
	}
	logger := logging.FromContext(ctx)

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = EmbeddingText(e.Repo, e.Summary)
	}
	vectors, err := d.Embedder.Embed(ctx, texts)
	if err != nil {
		logger.Warn("generating embeddings", "err", err)
		return 0
	}

	n := 0
	for i, e := range entries {
		if i >= len(vectors) {
			break
		}
		emb := models.Embedding{RepoID: e.Repo.ID, Model: d.EmbeddingModel, Vector: vectors[i]}
		if err := d.Store.SaveEmbedding(ctx, &emb); err != nil {
			logger.Warn("storing embedding", "repo", e.Repo.FullName, "err", err)
			continue
		}
		n++
	}
	return n
}

// optional turns store.ErrNotFound into an absent value.
func optional[T any](v T, err error) (*T, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
