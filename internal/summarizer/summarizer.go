// Package summarizer produces the per-repository Summary that labeling,
// insight scoring, ranking and use-case search read.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kevinmichaelchen/repoboard/internal/labeler"
	"github.com/kevinmichaelchen/repoboard/internal/llm"
	"github.com/kevinmichaelchen/repoboard/internal/logging"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

var ErrInvalidSummary = errors.New("summarizer: invalid summary")

// readmeExcerpt caps the README text sent to the model.
const readmeExcerpt = 4000

type Summarizer struct {
	llm llm.Completer
	now func() time.Time
}

// New returns a Summarizer. c may be nil, in which case every summary is
// derived from metadata.
func New(c llm.Completer, now func() time.Time) *Summarizer {
	if now == nil {
		now = time.Now
	}
	return &Summarizer{llm: c, now: now}
}

// Summarize never fails. With useLLM the model is asked first and any call
// or decode failure falls back to the metadata summary. The returned summary
// carries repo.ID.
func (s *Summarizer) Summarize(ctx context.Context, repo models.Repo, useLLM bool) (models.Summary, models.LabelSource) {
	if useLLM && s.llm != nil {
		sum, err := s.fromLLM(ctx, repo)
		if err == nil {
			sum.RepoID = repo.ID
			return sum, models.SourceLLM
		}
		logging.FromContext(ctx).Warn("llm summary failed, using heuristics", "repo", repo.FullName, "err", err)
	}
	sum := Heuristic(repo, s.now())
	sum.RepoID = repo.ID
	return sum, models.SourceHeuristic
}

const systemPrompt = `You are a technical analyst. Given a GitHub repository's name, description, topics and README excerpt, produce a JSON object with:

1. "summary": A 2-3 sentence summary of what the repo does, its main use case, and why it's notable.
2. "category": exactly one of: %s
3. "tags": 3-8 short lowercase tags.
4. "skill_level": one of Beginner, Intermediate, Advanced, Expert; "skill_level_numeric": 1-10.
5. "project_health": one of Healthy, Stable, At Risk; "project_health_score": 0.0-1.0.
6. "use_cases": 1-4 short phrases naming what people build or do with it.

Return ONLY valid JSON. No markdown, no code fences.`

func (s *Summarizer) fromLLM(ctx context.Context, repo models.Repo) (models.Summary, error) {
	system := fmt.Sprintf(systemPrompt, strings.Join(labeler.PrimaryCategories, ", "))
	raw, err := s.llm.Complete(ctx, system, buildPrompt(repo))
	if err != nil {
		return models.Summary{}, err
	}
	return Parse(raw)
}

func buildPrompt(repo models.Repo) string {
	parts := []string{fmt.Sprintf("Repository: %s", repo.FullName)}
	if repo.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", repo.Description))
	}
	if len(repo.Topics) > 0 {
		parts = append(parts, fmt.Sprintf("Topics: %s", strings.Join(repo.Topics, ", ")))
	}
	if repo.Readme != "" {
		parts = append(parts, fmt.Sprintf("README excerpt:\n%s", truncate(repo.Readme, readmeExcerpt)))
	}
	return strings.Join(parts, "\n\n")
}

type wireSummary struct {
	Summary     *string  `json:"summary"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
	SkillName   string   `json:"skill_level"`
	SkillLevel  *int     `json:"skill_level_numeric"`
	HealthLabel string   `json:"project_health"`
	HealthScore *float64 `json:"project_health_score"`
	UseCases    []string `json:"use_cases"`
}

// Parse decodes a model reply. The synopsis, a known category, a skill level
// in 1..10 and a health score in 0..1 are required.
func Parse(raw string) (models.Summary, error) {
	var w wireSummary
	if err := llm.DecodeJSON(raw, &w); err != nil {
		return models.Summary{}, fmt.Errorf("%w: %v", ErrInvalidSummary, err)
	}
	switch {
	case w.Summary == nil || strings.TrimSpace(*w.Summary) == "":
		return models.Summary{}, fmt.Errorf("%w: missing summary", ErrInvalidSummary)
	case w.Category == nil || !slices.Contains(labeler.PrimaryCategories, *w.Category):
		return models.Summary{}, fmt.Errorf("%w: unknown category", ErrInvalidSummary)
	case w.SkillLevel == nil || *w.SkillLevel < 1 || *w.SkillLevel > 10:
		return models.Summary{}, fmt.Errorf("%w: skill level out of range", ErrInvalidSummary)
	case w.HealthScore == nil || *w.HealthScore < 0 || *w.HealthScore > 1:
		return models.Summary{}, fmt.Errorf("%w: health score out of range", ErrInvalidSummary)
	}

	out := models.Summary{
		Synopsis:    strings.TrimSpace(*w.Summary),
		Category:    *w.Category,
		Tags:        nonNil(w.Tags),
		SkillLevel:  *w.SkillLevel,
		SkillName:   w.SkillName,
		HealthScore: *w.HealthScore,
		HealthLabel: w.HealthLabel,
		UseCases:    nonNil(w.UseCases),
	}
	if out.SkillName == "" {
		out.SkillName = SkillName(out.SkillLevel)
	}
	if out.HealthLabel == "" {
		out.HealthLabel = HealthLabel(out.HealthScore)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
