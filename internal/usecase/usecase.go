// Package usecase matches a free-text need ("parse PDFs in a web app") to
// stored repositories.
//
// Candidates are preselected by embedding similarity and then ranked by the
// LLM. Any LLM failure falls back to the similarity order.
package usecase

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/kevinmichaelchen/repoboard/internal/embedding"
	"github.com/kevinmichaelchen/repoboard/internal/llm"
	"github.com/kevinmichaelchen/repoboard/internal/logging"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// Candidate is a stored repository that may be recommended. Vector is its
// summary embedding, if one was computed.
type Candidate struct {
	Repo    models.Repo
	Summary *models.Summary
	Vector  []float32
}

type Match struct {
	RepoID       uint         `json:"repo_id"`
	MatchScore   int          `json:"match_score"`
	Reason       string       `json:"reason"`
	Pros         []string     `json:"pros"`
	Cons         []string     `json:"cons"`
	Alternatives []string     `json:"alternatives"`
	Similarity   float64      `json:"similarity,omitempty"`
	Repo         *models.Repo `json:"repo,omitempty"`
}

type Result struct {
	Recommendations []Match  `json:"recommendations"`
	Category        string   `json:"use_case_category"`
	Stack           []string `json:"recommended_stack"`
	Tip             string   `json:"getting_started_tip"`
	Fallback        bool     `json:"fallback"`
}

type Options struct {
	// Language keeps candidates that use, describe or are tagged with it.
	Language string
	Limit    int
}

const (
	// MaxCandidates bounds how many repositories are shown to the LLM.
	MaxCandidates = 50
	// MinMatchScore drops weak LLM matches.
	MinMatchScore = 50
)

type Finder struct {
	llm      llm.Completer
	embedder embedding.Embedder
}

// NewFinder builds a Finder. Either collaborator may be nil: without an
// embedder candidates keep their input order, without an LLM every search
// takes the fallback path.
func NewFinder(c llm.Completer, e embedding.Embedder) *Finder {
	return &Finder{llm: c, embedder: e}
}

// Find never fails; the worst case is the similarity-ordered fallback.
func (f *Finder) Find(ctx context.Context, query string, cands []Candidate, opts Options) Result {
	logger := logging.FromContext(ctx)
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	pool := filter(cands, opts.Language)
	if len(pool) == 0 {
		return Result{
			Recommendations: []Match{},
			Category:        "unknown",
			Stack:           []string{},
			Tip:             "No repositories found matching your criteria.",
		}
	}

	ranked := f.preselect(ctx, query, pool)
	if f.llm == nil {
		return fallback(ranked, opts.Limit)
	}

	prompt, err := buildPrompt(query, opts.Language, ranked)
	if err != nil {
		logger.Warn("building use-case prompt, using similarity order", "err", err)
		return fallback(ranked, opts.Limit)
	}
	raw, err := f.llm.Complete(ctx, systemPrompt(opts.Language), prompt)
	if err != nil {
		logger.Warn("use-case match failed, using similarity order", "err", err)
		return fallback(ranked, opts.Limit)
	}
	res, err := parse(raw, ranked, opts.Limit)
	if err != nil {
		logger.Warn("use-case reply rejected, using similarity order", "err", err)
		return fallback(ranked, opts.Limit)
	}
	return res
}

func filter(cands []Candidate, language string) []Candidate {
	lang := strings.ToLower(language)
	var out []Candidate
	for _, c := range cands {
		if c.Repo.Archived || c.Summary == nil {
			continue
		}
		if lang != "" && !usesLanguage(c.Repo, lang) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func usesLanguage(r models.Repo, lang string) bool {
	if strings.EqualFold(r.Language, lang) || r.HasTopic(lang) {
		return true
	}
	for l := range r.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(r.Description), lang)
}

type scored struct {
	Candidate
	similarity float64
}

// preselect orders the pool by similarity to query and keeps the best
// MaxCandidates. Candidates without a vector follow those with one.
func (f *Finder) preselect(ctx context.Context, query string, pool []Candidate) []scored {
	out := make([]scored, len(pool))
	for i, c := range pool {
		out[i] = scored{Candidate: c}
	}

	if f.embedder != nil {
		qv, err := embedding.Single(ctx, f.embedder, query)
		if err != nil {
			logging.FromContext(ctx).Warn("embedding query failed, keeping stored order", "err", err)
		} else {
			for i := range out {
				if len(out[i].Vector) > 0 {
					out[i].similarity = embedding.Cosine(qv, out[i].Vector)
				}
			}
			slices.SortStableFunc(out, func(a, b scored) int {
				if ha, hb := len(a.Vector) > 0, len(b.Vector) > 0; ha != hb {
					if ha {
						return -1
					}
					return 1
				}
				return cmp.Compare(b.similarity, a.similarity)
			})
		}
	}

	if len(out) > MaxCandidates {
		out = out[:MaxCandidates]
	}
	return out
}

func fallback(ranked []scored, limit int) Result {
	n := min(limit, len(ranked))
	recs := make([]Match, n)
	for i := range n {
		r := ranked[i].Repo
		recs[i] = Match{
			RepoID:       r.ID,
			MatchScore:   60,
			Reason:       "Popular repository that might match your needs",
			Pros:         []string{"Well-maintained", "Popular"},
			Cons:         []string{},
			Alternatives: []string{},
			Similarity:   ranked[i].similarity,
			Repo:         &r,
		}
	}
	return Result{
		Recommendations: recs,
		Category:        "general",
		Stack:           []string{},
		Tip:             "Check the repository README for getting started instructions.",
		Fallback:        true,
	}
}

type wireMatch struct {
	RepoID       *uint    `json:"repo_id"`
	MatchScore   *int     `json:"match_score"`
	Reason       string   `json:"reason"`
	Pros         []string `json:"pros"`
	Cons         []string `json:"cons"`
	Alternatives []string `json:"alternatives"`
}

type wireResult struct {
	Recommendations *[]wireMatch `json:"recommendations"`
	Category        string       `json:"use_case_category"`
	Stack           []string     `json:"recommended_stack"`
	Tip             string       `json:"getting_started_tip"`
}

// parse decodes the LLM reply strictly and joins it back to the candidates.
// Matches for unknown repositories or below MinMatchScore are dropped.
func parse(raw string, ranked []scored, limit int) (Result, error) {
	var w wireResult
	if err := llm.DecodeJSON(raw, &w); err != nil {
		return Result{}, err
	}
	if w.Recommendations == nil {
		return Result{}, fmt.Errorf("missing recommendations")
	}

	byID := make(map[uint]scored, len(ranked))
	for _, s := range ranked {
		byID[s.Repo.ID] = s
	}

	var recs []Match
	for _, m := range *w.Recommendations {
		if m.RepoID == nil || m.MatchScore == nil {
			return Result{}, fmt.Errorf("recommendation missing repo_id or match_score")
		}
		if *m.MatchScore < 0 || *m.MatchScore > 100 {
			return Result{}, fmt.Errorf("match_score %d out of range", *m.MatchScore)
		}
		s, ok := byID[*m.RepoID]
		if !ok || *m.MatchScore < MinMatchScore {
			continue
		}
		r := s.Repo
		recs = append(recs, Match{
			RepoID:       r.ID,
			MatchScore:   *m.MatchScore,
			Reason:       m.Reason,
			Pros:         nonNil(m.Pros),
			Cons:         nonNil(m.Cons),
			Alternatives: nonNil(m.Alternatives),
			Similarity:   s.similarity,
			Repo:         &r,
		})
	}
	slices.SortStableFunc(recs, func(a, b Match) int { return cmp.Compare(b.MatchScore, a.MatchScore) })
	if len(recs) > limit {
		recs = recs[:limit]
	}

	return Result{
		Recommendations: nonNil(recs),
		Category:        w.Category,
		Stack:           nonNil(w.Stack),
		Tip:             w.Tip,
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func systemPrompt(language string) string {
	who := "software developer"
	if language != "" {
		who = language + " developer"
	}
	return "You are an expert " + who + " who recommends the best libraries for specific use cases. " +
		"Be practical and consider real-world usage. Respond with JSON only."
}

type promptRepo struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Stars       int      `json:"stars"`
	Health      string   `json:"project_health"`
	UseCases    []string `json:"use_cases"`
}

func buildPrompt(query, language string, ranked []scored) (string, error) {
	list := make([]promptRepo, len(ranked))
	for i, s := range ranked {
		p := promptRepo{
			ID:          s.Repo.ID,
			Name:        s.Repo.Name,
			FullName:    s.Repo.FullName,
			Description: s.Repo.Description,
			Stars:       s.Repo.Stars,
			Category:    "Other",
			Health:      "unknown",
			Tags:        []string{},
			UseCases:    []string{},
		}
		if sum := s.Summary; sum != nil {
			p.Summary = sum.Synopsis
			p.Tags = nonNil(sum.Tags)
			p.UseCases = nonNil(sum.UseCases)
			if sum.Category != "" {
				p.Category = sum.Category
			}
			if sum.HealthLabel != "" {
				p.Health = sum.HealthLabel
			}
		}
		list[i] = p
	}
	repos, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding candidates: %w", err)
	}

	kind := "library"
	if language != "" {
		kind = language + " library"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s recommendation expert. A user wants to: %q\n\n", kind, query)
	b.WriteString(`Given the following repositories, recommend the best ones for this use case. Consider:
1. How well the repository matches the use case
2. Library maturity and maintenance status
3. Documentation quality
4. Community support
5. Ease of use

Repository candidates:
`)
	b.Write(repos)
	b.WriteString(`

Return a JSON object with exactly this structure:
{
  "recommendations": [
    {
      "repo_id": <id>,
      "match_score": <0-100>,
      "reason": "<why this is a good match>",
      "pros": ["<advantage>"],
      "cons": ["<limitation>"],
      "alternatives": ["<alternative library>"]
    }
  ],
  "use_case_category": "<category like 'web-api', 'data-processing', 'ml'>",
  "recommended_stack": ["<lib>"],
  "getting_started_tip": "<brief tip on how to get started>"
}

Only include repositories with match_score >= 50. Sort by match_score descending.`)
	return b.String(), nil
}
