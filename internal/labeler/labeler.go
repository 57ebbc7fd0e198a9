// Package labeler assigns the five-facet label bundle to a repository,
// either by heuristics or by asking an LLM with heuristic fallback.
package labeler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/llm"
	"github.com/kevinmichaelchen/repoboard/internal/logging"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

var ErrInvalidBundle = errors.New("labeler: invalid label bundle")

type Labeler struct {
	heuristic *Heuristic
	llm       llm.Completer
}

// New returns a Labeler. c may be nil, in which case every request is
// served by the heuristic strategy.
func New(c llm.Completer, now func() time.Time) *Labeler {
	return &Labeler{heuristic: NewHeuristic(now), llm: c}
}

// Label always returns a complete bundle and the strategy that produced it.
// With useLLM the model is asked first; any call, decode or validation
// failure falls back to heuristics.
func (l *Labeler) Label(ctx context.Context, repo models.Repo, summary *models.Summary, useLLM bool) (models.LabelBundle, models.LabelSource) {
	if !useLLM || l.llm == nil {
		return l.heuristic.Label(repo, summary), models.SourceHeuristic
	}
	b, err := l.fromLLM(ctx, repo, summary)
	if err != nil {
		logging.FromContext(ctx).Warn("llm labeling failed, using heuristics", "repo", repo.FullName, "err", err)
		return l.heuristic.Label(repo, summary), models.SourceHeuristic
	}
	return b, models.SourceLLM
}

const systemPrompt = `You are a technical curator labeling GitHub repositories. Return ONLY valid JSON matching the requested shape. No markdown, no code fences, no extra keys.`

func (l *Labeler) fromLLM(ctx context.Context, repo models.Repo, summary *models.Summary) (models.LabelBundle, error) {
	raw, err := l.llm.Complete(ctx, systemPrompt, buildPrompt(repo, summary))
	if err != nil {
		return models.LabelBundle{}, err
	}
	return ParseBundle(raw)
}

func buildPrompt(repo models.Repo, summary *models.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\n", repo.FullName)
	fmt.Fprintf(&sb, "Description: %s\n", orNA(repo.Description))
	fmt.Fprintf(&sb, "Stars: %d\n", repo.Stars)
	fmt.Fprintf(&sb, "Languages: %s\n", orNA(strings.Join(languages(repo), ", ")))
	fmt.Fprintf(&sb, "Topics: %s\n", orNA(strings.Join(repo.Topics, ", ")))
	if summary != nil {
		fmt.Fprintf(&sb, "\nSummary: %s\n", summary.Synopsis)
		fmt.Fprintf(&sb, "Category: %s\n", summary.Category)
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(summary.Tags, ", "))
	}

	fmt.Fprintf(&sb, `
Assign labels:

1. primary_category: 1-2 of: %s
2. quality:
   - star_quality: one of %s
   - documentation: one of %s
   - maintenance: one of %s
   - use_case: one of %s
   - recognition: one of %s
   - innovation: one of %s
3. technical: languages (all), frameworks, architecture patterns, platform (any of %s)
4. community: size (one of %s), activity (one of %s)
5. discovery: zero or more of %s

Return JSON:
{"primary_category": [], "quality": {"star_quality": "", "documentation": "", "maintenance": "", "use_case": "", "recognition": "", "innovation": ""}, "technical": {"languages": [], "frameworks": [], "architecture": [], "platform": []}, "community": {"size": "", "activity": ""}, "discovery": []}
`,
		strings.Join(PrimaryCategories, ", "),
		strings.Join(StarQualityLabels, ", "),
		strings.Join(DocumentationLabels, ", "),
		strings.Join(MaintenanceLabels, ", "),
		strings.Join(UseCaseLabels, ", "),
		strings.Join(RecognitionLabels, ", "),
		strings.Join(InnovationLabels, ", "),
		strings.Join(PlatformLabels, ", "),
		strings.Join(CommunitySizeLabels, ", "),
		strings.Join(ActivityLabels, ", "),
		strings.Join(DiscoveryLabels, ", "),
	)
	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
