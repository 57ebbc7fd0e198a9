// Package insight scores how notable a repository is across six weighted
// factors. Each factor adds up independent signals and is clamped to 1 only
// after all of them are summed.
package insight

import (
	"slices"
	"strings"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

var (
	innovationKeywords = []string{
		"novel", "innovative", "breakthrough", "revolutionary",
		"cutting-edge", "state-of-the-art", "sota", "new approach",
		"first", "pioneering", "groundbreaking", "unique",
	}
	educationalKeywords = []string{
		"tutorial", "guide", "learn", "learning", "example",
		"demo", "walkthrough", "getting started", "beginner",
		"educational", "teaching", "course", "lesson",
	}
	educationalTopics = []string{"education", "tutorial", "learning", "examples"}
	productionPhrases = []string{
		"production", "used by", "adopted", "deployed",
		"in production", "production-ready",
	}
	depthKeywords = []string{
		"advanced", "complex", "sophisticated", "deep",
		"comprehensive", "detailed", "thorough",
	}
	technicalTopics = []string{
		"algorithm", "data-structure", "optimization", "performance",
		"architecture", "system", "engine", "framework",
	}
)

type Scorer struct {
	now func() time.Time
}

func NewScorer(now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

// Score computes all six sub-scores and the weighted total for repo.
func (s *Scorer) Score(repo models.Repo, summary *models.Summary) models.Insight {
	now := s.now()
	w := models.InsightWeights
	in := models.Insight{
		RepoID:           repo.ID,
		Innovation:       Innovation(repo, summary, now),
		BestPractices:    BestPractices(repo, now),
		EducationalValue: EducationalValue(repo, summary),
		ProductionUse:    ProductionUse(repo, summary, now),
		CommunityImpact:  CommunityImpact(repo),
		TechnicalDepth:   TechnicalDepth(repo, summary),
		ComputedAt:       now,
	}
	in.Total = w.Innovation*in.Innovation +
		w.BestPractices*in.BestPractices +
		w.EducationalValue*in.EducationalValue +
		w.ProductionUse*in.ProductionUse +
		w.CommunityImpact*in.CommunityImpact +
		w.TechnicalDepth*in.TechnicalDepth
	return in
}

func Innovation(repo models.Repo, summary *models.Summary, now time.Time) float64 {
	score := 0.0
	text := strings.ToLower(repo.Description + " " + strings.Join(repo.Topics, " "))
	for _, k := range innovationKeywords {
		if strings.Contains(text, k) {
			score += 0.1
		}
	}

	switch v := repo.StarVelocity; {
	case v > 20:
		score += 0.3
	case v > 10:
		score += 0.2
	case v > 5:
		score += 0.1
	}

	if !repo.CreatedAt.IsZero() {
		age := models.DaysBetween(repo.CreatedAt, now)
		if age < 180 && repo.Stars > 500 {
			score += 0.2
		} else if age < 365 && repo.Stars > 1000 {
			score += 0.1
		}
	}

	if summary != nil && containsAny(strings.ToLower(summary.Synopsis), "innovative", "novel") {
		score += 0.2
	}
	return min(score, 1.0)
}

func BestPractices(repo models.Repo, now time.Time) float64 {
	score := 0.0
	if repo.Readme != "" {
		readme := strings.ToLower(repo.Readme)
		if containsAny(readme, "documentation", "docs") {
			score += 0.1
		}
		if containsAny(readme, "test", "testing", "ci", "travis", "github actions") {
			score += 0.15
		}
		if containsAny(readme, "lint", "format", "code quality", "style guide") {
			score += 0.1
		}
		if containsAny(readme, "contributing", "contribute") {
			score += 0.1
		}
		if repo.License != "" {
			score += 0.05
		}
		if containsAny(readme, "example", "demo", "usage", "quick start") {
			score += 0.1
		}
	}

	if len(repo.FileTree) > 0 {
		tree := treeText(repo)
		if containsAny(tree, "test", "spec") {
			score += 0.1
		}
		if containsAny(tree, ".github", "ci") {
			score += 0.1
		}
		if containsAny(tree, "docs", "documentation") {
			score += 0.05
		}
	}

	if repo.Stars > 1000 && repo.PushedWithin(now, 90) {
		score += 0.15
	}
	return min(score, 1.0)
}

func EducationalValue(repo models.Repo, summary *models.Summary) float64 {
	if repo.Readme == "" {
		return 0
	}
	score := 0.0
	readme := strings.ToLower(repo.Readme)
	for _, k := range educationalKeywords {
		if strings.Contains(readme, k) {
			score += 0.1
		}
	}

	switch n := len(repo.Readme); {
	case n > 3000:
		score += 0.2
	case n > 1500:
		score += 0.1
	}

	if len(repo.FileTree) > 0 && containsAny(treeText(repo), "example", "demo", "sample") {
		score += 0.2
	}
	if summary != nil && containsAny(strings.ToLower(summary.Synopsis), "learn", "tutorial", "educational", "guide") {
		score += 0.2
	}
	if slices.ContainsFunc(repo.Topics, func(t string) bool { return slices.Contains(educationalTopics, t) }) {
		score += 0.2
	}
	return min(score, 1.0)
}

func ProductionUse(repo models.Repo, summary *models.Summary, now time.Time) float64 {
	score := 0.0
	switch s := repo.Stars; {
	case s > 10000:
		score += 0.4
	case s > 5000:
		score += 0.3
	case s > 1000:
		score += 0.2
	case s > 500:
		score += 0.1
	}

	if d := repo.DaysSincePush(now); d >= 0 {
		if d < 30 {
			score += 0.2
		} else if d < 90 {
			score += 0.1
		}
	}

	switch c := repo.ContributorCount; {
	case c > 10:
		score += 0.1
	case c > 5:
		score += 0.05
	}

	if repo.Readme != "" && containsAny(strings.ToLower(repo.Readme), productionPhrases...) {
		score += 0.2
	}
	if summary != nil && slices.ContainsFunc(summary.UseCases, func(uc string) bool {
		return strings.Contains(strings.ToLower(uc), "production")
	}) {
		score += 0.2
	}
	return min(score, 1.0)
}

func CommunityImpact(repo models.Repo) float64 {
	score := 0.0
	switch f := repo.Forks; {
	case f > 1000:
		score += 0.3
	case f > 500:
		score += 0.2
	case f > 100:
		score += 0.1
	}

	switch s := repo.Stars; {
	case s > 10000:
		score += 0.3
	case s > 5000:
		score += 0.2
	case s > 1000:
		score += 0.1
	}

	switch w := repo.Watchers; {
	case w > 500:
		score += 0.1
	case w > 100:
		score += 0.05
	}

	if repo.Stars > 0 {
		ratio := float64(repo.Forks) / float64(repo.Stars)
		if ratio > 0.3 {
			score += 0.2
		} else if ratio > 0.2 {
			score += 0.1
		}
	}

	if len(repo.Topics) > 5 {
		score += 0.1
	}
	return min(score, 1.0)
}

func TechnicalDepth(repo models.Repo, summary *models.Summary) float64 {
	score := 0.0
	if len(repo.Languages) > 3 {
		score += 0.1
	}

	switch n := len(repo.FileTree); {
	case n > 100:
		score += 0.2
	case n > 50:
		score += 0.1
	}

	if summary != nil {
		if containsAny(strings.ToLower(summary.Synopsis), depthKeywords...) {
			score += 0.2
		}
		switch lvl := summary.SkillLevel; {
		case lvl >= 8:
			score += 0.3
		case lvl >= 6:
			score += 0.2
		case lvl >= 4:
			score += 0.1
		}
	}

	switch n := len(repo.Readme); {
	case n > 5000:
		score += 0.2
	case n > 2000:
		score += 0.1
	}

	if slices.ContainsFunc(repo.Topics, func(t string) bool { return slices.Contains(technicalTopics, t) }) {
		score += 0.1
	}
	return min(score, 1.0)
}

func treeText(repo models.Repo) string {
	return strings.ToLower(strings.Join(repo.FileTree, " "))
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
