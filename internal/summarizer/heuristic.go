package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/labeler"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

const (
	maxTags     = 5
	maxSynopsis = 300
)

var (
	beginnerWords = []string{"beginner", "tutorial", "learn", "course", "awesome"}
	advancedWords = []string{"compiler", "kernel", "distributed", "runtime", "database", "consensus"}
)

// platformUses phrases each platform label as a use case.
var platformUses = map[string]string{
	"Web":     "Web applications",
	"Mobile":  "Mobile apps",
	"Desktop": "Desktop applications",
	"CLI":     "Command-line tooling",
	"Library": "Embedding in other projects",
	"API":     "Building and serving APIs",
}

// Heuristic derives a summary from repository metadata alone.
func Heuristic(repo models.Repo, now time.Time) models.Summary {
	text := strings.ToLower(repo.Description + " " + strings.Join(repo.Topics, " "))

	s := models.Summary{
		Synopsis: synopsis(repo),
		Category: labeler.PrimaryCategory(repo, nil)[0],
		Tags:     tags(repo),
	}

	switch {
	case containsAny(text, advancedWords...):
		s.SkillLevel = 7
	case containsAny(text, beginnerWords...):
		s.SkillLevel = 3
	default:
		s.SkillLevel = 5
	}
	s.SkillName = SkillName(s.SkillLevel)

	s.HealthScore = health(repo, now)
	s.HealthLabel = HealthLabel(s.HealthScore)

	for _, p := range labeler.Platform(repo) {
		s.UseCases = append(s.UseCases, platformUses[p])
	}
	if containsAny(text, beginnerWords...) {
		s.UseCases = append(s.UseCases, "Learning and tutorials")
	}
	return s
}

// health blends maintenance, README quality, license and contributor count.
func health(repo models.Repo, now time.Time) float64 {
	score := 0.0
	switch labeler.Maintenance(repo, now) {
	case "Active":
		score += 0.4
	case "Maintained":
		score += 0.3
	case "Slow":
		score += 0.15
	}
	score += 0.3 * float64(labeler.DocScore(repo.Readme)) / 5
	if repo.License != "" {
		score += 0.15
	}
	if repo.ContributorCount > 5 {
		score += 0.15
	}
	return min(score, 1.0)
}

func synopsis(repo models.Repo) string {
	if d := strings.TrimSpace(repo.Description); d != "" {
		return truncate(d, maxSynopsis)
	}
	for _, para := range strings.Split(repo.Readme, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || strings.HasPrefix(para, "#") || strings.HasPrefix(para, "[![") || strings.HasPrefix(para, "<") {
			continue
		}
		return truncate(strings.Join(strings.Fields(para), " "), maxSynopsis)
	}
	return fmt.Sprintf("%s repository", repo.FullName)
}

func tags(repo models.Repo) []string {
	out := []string{}
	for _, t := range repo.Topics {
		if len(out) == maxTags {
			break
		}
		out = append(out, strings.ToLower(t))
	}
	if len(out) == 0 && repo.Language != "" {
		out = append(out, strings.ToLower(repo.Language))
	}
	return out
}

// SkillName names a 1..10 skill level.
func SkillName(level int) string {
	switch {
	case level <= 3:
		return "Beginner"
	case level <= 6:
		return "Intermediate"
	case level <= 8:
		return "Advanced"
	default:
		return "Expert"
	}
}

func HealthLabel(score float64) string {
	switch {
	case score >= 0.7:
		return "Healthy"
	case score >= 0.4:
		return "Stable"
	default:
		return "At Risk"
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
