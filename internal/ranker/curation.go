package ranker

import "github.com/kevinmichaelchen/repoboard/internal/models"

// CurationWeights blend the stored curation score. Social is optional: when
// a repository has no signals yet its weight is spread over the rest.
var CurationWeights = struct {
	Popularity float64
	Velocity   float64
	Activity   float64
	Quality    float64
	Insight    float64
	Social     float64
}{0.20, 0.15, 0.15, 0.15, 0.20, 0.15}

func curationTotal(s *Scored) float64 {
	w := CurationWeights
	total := w.Popularity*s.Popularity +
		w.Velocity*s.Velocity +
		w.Activity*s.Activity +
		w.Quality*s.Quality +
		w.Insight*s.InsightScore
	if s.HasSocial {
		return total + w.Social*s.Social
	}
	return total / (1 - w.Social)
}

// CurationScores returns one stored score per row, tagged with runID.
func (t *Table) CurationScores(runID string) []models.CurationScore {
	out := make([]models.CurationScore, len(t.rows))
	for i, s := range t.rows {
		out[i] = models.CurationScore{
			RepoID:     s.Repo.ID,
			Popularity: s.Popularity,
			Velocity:   s.Velocity,
			Activity:   s.Activity,
			Quality:    s.Quality,
			Insight:    s.InsightScore,
			Social:     s.Social,
			HasSocial:  s.HasSocial,
			Total:      s.Curation,
			Preset:     string(t.preset),
			RunID:      runID,
			ComputedAt: t.now.UTC(),
		}
	}
	return out
}
