package ranker

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// Recommendation is one ranked item of a view.
type Recommendation struct {
	Rank           int      `json:"rank"`
	Category       string   `json:"category"`
	RepoID         uint     `json:"repo_id"`
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	Description    string   `json:"description"`
	Stars          int      `json:"stars"`
	Forks          int      `json:"forks"`
	Language       string   `json:"language"`
	Topics         []string `json:"topics"`
	Summary        string   `json:"summary,omitempty"`
	Score          float64  `json:"score"`
	StarVelocity   float64  `json:"star_velocity"`
	QualityScore   float64  `json:"quality_score"`
	ActivityScore  float64  `json:"activity_score"`
	Insightfulness float64  `json:"insightfulness"`
	CurationScore  float64  `json:"curation_score"`
	SocialScore    *float64 `json:"social_score,omitempty"`
	Why            string   `json:"why_recommended"`
}

// FallbackReason is used when no reason predicate fires.
const FallbackReason = "Quality repository"

var printer = message.NewPrinter(language.English)

func (t *Table) format(rows []*Scored, category string) []Recommendation {
	out := make([]Recommendation, len(rows))
	for i, s := range rows {
		r := s.Repo
		desc := r.Description
		if desc == "" {
			desc = "No description"
		}
		rec := Recommendation{
			Rank:           i + 1,
			Category:       category,
			RepoID:         r.ID,
			Name:           r.FullName,
			URL:            r.URL,
			Description:    desc,
			Stars:          r.Stars,
			Forks:          r.Forks,
			Language:       r.Language,
			Topics:         r.Topics[:min(5, len(r.Topics))],
			Score:          s.Combined,
			StarVelocity:   s.StarVelocity,
			QualityScore:   s.Quality,
			ActivityScore:  s.Activity,
			Insightfulness: s.InsightScore,
			CurationScore:  s.Curation,
			Why:            Reason(s),
		}
		if rec.Topics == nil {
			rec.Topics = []string{}
		}
		if s.Summary != nil {
			rec.Summary = s.Summary.Synopsis
		}
		if s.HasSocial {
			v := s.Entry.Social.Aggregate
			rec.SocialScore = &v
		}
		out[i] = rec
	}
	return out
}

var discoveryReasons = map[string]string{
	string(models.HiddenGem):   "Hidden gem - high quality, low visibility",
	string(models.RisingStar):  "Rising star - rapidly gaining traction",
	string(models.Educational): "Great for learning",
}

// Reason explains why s is recommended, joining every triggered reason with
// "; ".
func Reason(s *Scored) string {
	var reasons []string
	r := s.Repo

	switch {
	case r.Stars > 1000:
		reasons = append(reasons, printer.Sprintf("Highly popular (%d stars)", r.Stars))
	case r.Stars > 500:
		reasons = append(reasons, printer.Sprintf("Popular (%d stars)", r.Stars))
	}
	if s.StarVelocity > 10 {
		reasons = append(reasons, "Rising star")
	}
	if s.DaysSinceUpdate >= 0 && s.DaysSinceUpdate < 30 {
		reasons = append(reasons, "Recently updated")
	}
	if s.Quality > 0.8 {
		reasons = append(reasons, "High quality")
	}

	switch {
	case s.InsightScore > 0.7:
		reasons = append(reasons, "Highly insightful")
	case s.InsightScore > 0.5:
		reasons = append(reasons, "Insightful")
	}

	for _, l := range s.Labels {
		switch {
		case l.Type == models.LabelDiscovery:
			if msg, ok := discoveryReasons[l.Value]; ok {
				reasons = append(reasons, msg)
			}
		case l.Type == models.LabelQuality && l.Facet == "documentation" && l.Value == "Excellent":
			reasons = append(reasons, "Excellent documentation")
		}
	}

	if in := s.Insight; in != nil {
		if in.Innovation > 0.7 {
			reasons = append(reasons, "Innovative approach")
		}
		if in.BestPractices > 0.7 {
			reasons = append(reasons, "Best practices example")
		}
		if in.ProductionUse > 0.7 {
			reasons = append(reasons, "Production-ready")
		}
	}
	if s.HasSocial && s.Social >= 0.5 {
		reasons = append(reasons, "Widely discussed")
	}
	if r.License != "" {
		reasons = append(reasons, "Has license")
	}

	if len(reasons) == 0 {
		return FallbackReason
	}
	return strings.Join(reasons, "; ")
}
