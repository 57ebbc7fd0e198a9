package labeler

import (
	"slices"
	"strings"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// Heuristic labels a repository from its metadata alone. It is pure given
// its clock.
type Heuristic struct {
	now func() time.Time
}

func NewHeuristic(now func() time.Time) *Heuristic {
	if now == nil {
		now = time.Now
	}
	return &Heuristic{now: now}
}

func (h *Heuristic) Label(repo models.Repo, summary *models.Summary) models.LabelBundle {
	now := h.now()
	b := models.LabelBundle{
		PrimaryCategory: PrimaryCategory(repo, summary),
		Quality: models.QualityLabels{
			StarQuality:   StarQuality(repo.Stars),
			Documentation: Documentation(repo.Readme),
			Maintenance:   Maintenance(repo, now),
			UseCase:       UseCase(repo, summary, now),
		},
		Technical: models.TechnicalLabels{
			Languages:    languages(repo),
			Frameworks:   frameworks(repo),
			Architecture: architecture(repo),
			Platform:     Platform(repo),
		},
		Community: models.CommunityLabels{
			Size:     CommunitySize(repo.Stars),
			Activity: Activity(repo, now),
		},
		Discovery: Discovery(repo, summary, now),
	}
	b.Quality.Recognition = recognition(b.Discovery)
	b.Quality.Innovation = innovation(repo, b.Quality.Maintenance)
	return b
}

func StarQuality(stars int) string {
	switch {
	case stars >= 10000:
		return "Exceptional"
	case stars >= 1000:
		return "High"
	case stars >= 100:
		return "Good"
	case stars >= 10:
		return "Standard"
	default:
		return "Basic"
	}
}

func CommunitySize(stars int) string {
	switch {
	case stars >= 10000:
		return "Large"
	case stars >= 1000:
		return "Medium"
	case stars >= 100:
		return "Small"
	default:
		return "Niche"
	}
}

// DocScore counts README signals: install, usage, docs and contributing
// sections, plus length over 1000 characters.
func DocScore(readme string) int {
	lower := strings.ToLower(readme)
	score := 0
	if containsAny(lower, "installation", "install", "setup") {
		score++
	}
	if containsAny(lower, "usage", "example", "demo") {
		score++
	}
	if containsAny(lower, "documentation", "docs", "api") {
		score++
	}
	if containsAny(lower, "contributing", "contribute") {
		score++
	}
	if len(readme) > 1000 {
		score++
	}
	return score
}

func Documentation(readme string) string {
	if readme == "" {
		return "Missing"
	}
	switch s := DocScore(readme); {
	case s >= 4:
		return "Excellent"
	case s >= 3:
		return "Good"
	case s >= 2:
		return "Adequate"
	default:
		return "Poor"
	}
}

func Maintenance(repo models.Repo, now time.Time) string {
	if repo.Archived {
		return "Archived"
	}
	days := repo.DaysSincePush(now)
	switch {
	case days < 0:
		return "Abandoned"
	case days < 30:
		return "Active"
	case days < 180:
		return "Maintained"
	case days < 365:
		return "Slow"
	default:
		return "Abandoned"
	}
}

// UseCase checks popularity with recent activity first, then the summary
// use cases, then defaults to Prototype.
func UseCase(repo models.Repo, summary *models.Summary, now time.Time) string {
	if repo.Stars > 1000 && repo.PushedWithin(now, 90) {
		return "Production-Ready"
	}
	if summary != nil {
		for _, uc := range summary.UseCases {
			if strings.Contains(strings.ToLower(uc), "production") {
				return "Production-Ready"
			}
		}
		for _, uc := range summary.UseCases {
			if containsAny(strings.ToLower(uc), "learn", "tutorial") {
				return "Educational"
			}
		}
	}
	return "Prototype"
}

// Platform matches description and topics against the platform vocabulary,
// defaulting to Library.
func Platform(repo models.Repo) []string {
	text := strings.ToLower(repo.Description + " " + strings.Join(repo.Topics, " "))
	var out []string
	for _, p := range platformKeywords {
		if containsAny(text, p.keywords...) {
			out = append(out, p.label)
		}
	}
	if len(out) == 0 {
		return []string{"Library"}
	}
	return out
}

func Activity(repo models.Repo, now time.Time) string {
	days := repo.DaysSincePush(now)
	switch {
	case days < 0:
		return "Inactive"
	case days < 7:
		return "Very Active"
	case days < 30:
		return "Active"
	case days < 90:
		return "Moderate"
	case days < 180:
		return "Low"
	default:
		return "Inactive"
	}
}

// Discovery evaluates each flag independently; a repository may carry any
// combination.
func Discovery(repo models.Repo, summary *models.Summary, now time.Time) []models.DiscoveryLabel {
	out := []models.DiscoveryLabel{}

	if repo.Stars < 500 && summary != nil && summary.HealthScore > 0.7 {
		out = append(out, models.HiddenGem)
	}
	if repo.StarVelocity > 10 {
		out = append(out, models.RisingStar)
	}
	if !repo.CreatedAt.IsZero() {
		age := models.DaysBetween(repo.CreatedAt, now)
		if float64(age)/365 > 3 && repo.PushedWithin(now, 90) {
			out = append(out, models.Established)
		}
		if age < 90 {
			out = append(out, models.Experimental)
		}
	}
	if len(repo.Readme) > 2000 && containsAny(strings.ToLower(repo.Readme), "tutorial", "example", "guide", "learn") {
		out = append(out, models.Educational)
	}
	return out
}

// PrimaryCategory prefers the summary category, then up to two topic
// categories, then Library.
func PrimaryCategory(repo models.Repo, summary *models.Summary) []string {
	if summary != nil && summary.Category != "" {
		return []string{summary.Category}
	}
	var out []string
	for _, c := range categoryTopics {
		if slices.ContainsFunc(c.topics, repo.HasTopic) {
			out = append(out, c.category)
			if len(out) == 2 {
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{"Library"}
	}
	return out
}

// languages lists language names largest first, ties by name.
func languages(repo models.Repo) []string {
	out := make([]string, 0, len(repo.Languages))
	for l := range repo.Languages {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b string) int {
		if d := repo.Languages[b] - repo.Languages[a]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	if len(out) == 0 && repo.Language != "" {
		out = append(out, repo.Language)
	}
	return out
}

func frameworks(repo models.Repo) []string {
	out := []string{}
	for _, f := range frameworkTopics {
		if repo.HasTopic(f) {
			out = append(out, f)
		}
	}
	return out
}

func architecture(repo models.Repo) []string {
	text := strings.ToLower(repo.Description + " " + strings.Join(repo.Topics, " "))
	out := []string{}
	for _, a := range architectureKeywords {
		if containsAny(text, a.keywords...) {
			out = append(out, a.label)
		}
	}
	return out
}

func recognition(discovery []models.DiscoveryLabel) string {
	switch {
	case slices.Contains(discovery, models.HiddenGem):
		return "Hidden Gem"
	case slices.Contains(discovery, models.RisingStar):
		return "Trending"
	default:
		return "GitHub Stars"
	}
}

func innovation(repo models.Repo, maintenance string) string {
	switch {
	case maintenance == "Abandoned" || maintenance == "Archived":
		return "Outdated"
	case repo.StarVelocity > 10:
		return "Innovative"
	default:
		return "Standard"
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
