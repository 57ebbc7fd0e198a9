// Package ranker turns a stored corpus into ordered recommendations.
//
// Build precomputes every sub-score once. Views are pure filter and stable
// sort passes over that table and never change it.
package ranker

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// Entry is one repository with everything derived from it so far. Only Repo
// is required.
type Entry struct {
	Repo    models.Repo
	Summary *models.Summary
	Labels  []models.Label
	Insight *models.Insight
	Social  *models.SocialSignals
}

// Scored is an Entry with its precomputed sub-scores.
type Scored struct {
	Entry

	StarVelocity    float64
	DaysSinceUpdate int // -1 when unknown

	Popularity   float64
	Velocity     float64
	Activity     float64
	Quality      float64
	InsightScore float64
	Social       float64
	HasSocial    bool
	Health       float64
	Curation     float64
	Combined     float64

	quickQuality float64
}

// Thresholds parameterize the filtering views.
type Thresholds struct {
	RisingVelocity   float64
	GemMaxStars      int
	GemMinQuality    float64
	RecentWindowDays int
	ProductionStars  int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		RisingVelocity:   5.0,
		GemMaxStars:      500,
		GemMinQuality:    0.7,
		RecentWindowDays: 30,
		ProductionStars:  1000,
	}
}

// Table is the precomputed ranking state for one corpus and preset.
type Table struct {
	rows   []Scored
	preset Preset
	now    time.Time
}

// Build scores every entry with preset as of now.
func Build(entries []Entry, preset Preset, now time.Time) *Table {
	t := &Table{rows: make([]Scored, len(entries)), preset: preset, now: now}
	for i, e := range entries {
		t.rows[i] = score(e, preset, now)
	}
	return t
}

func score(e Entry, preset Preset, now time.Time) Scored {
	r := e.Repo
	s := Scored{
		Entry:           e,
		StarVelocity:    models.StarVelocity(r.Stars, r.AgeDays(now)),
		DaysSinceUpdate: r.DaysSinceUpdate(now),
	}
	if s.DaysSinceUpdate < 0 {
		s.DaysSinceUpdate = r.DaysSincePush(now)
	}

	s.Popularity = min(float64(r.Stars)/10000, 1)
	s.Velocity = min(s.StarVelocity/50, 1)
	if s.DaysSinceUpdate >= 0 {
		s.Activity = max(0, 1-float64(s.DaysSinceUpdate)/365)
	}
	s.Quality = Quality(r)
	s.quickQuality = QuickQuality(r)

	if e.Insight != nil {
		s.InsightScore = e.Insight.Total
	}
	if e.Social != nil {
		s.HasSocial = true
		s.Social = min(e.Social.Aggregate/100, 1)
	}
	s.Health = 0.5
	if e.Summary != nil {
		s.Health = e.Summary.HealthScore
	}

	s.Curation = curationTotal(&s)
	s.Combined = preset.combine(&s)
	return s
}

// Quality is the five-factor, equal-weight quality score: license, wiki or
// pages, description, topics and not archived.
func Quality(r models.Repo) float64 {
	n := 0
	if r.License != "" {
		n++
	}
	if r.HasWiki || r.HasPages {
		n++
	}
	if r.Description != "" {
		n++
	}
	if len(r.Topics) > 0 {
		n++
	}
	if !r.Archived {
		n++
	}
	return float64(n) / 5
}

// QuickQuality is the quality factor of the Quick preset.
func QuickQuality(r models.Repo) float64 {
	q := 0.0
	if r.HasWiki || r.HasPages {
		q += 0.3
	}
	if r.License != "" {
		q += 0.2
	}
	if !r.Archived {
		q += 0.5
	}
	return q
}

// Preset reports the blend the table was built with.
func (t *Table) Preset() Preset { return t.preset }

// Len reports the corpus size.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the scored rows in input order.
func (t *Table) Rows() []Scored { return slices.Clone(t.rows) }

func byCombined(a, b *Scored) int { return cmp.Compare(b.Combined, a.Combined) }

func (t *Table) view(category string, limit int, keep func(*Scored) bool, order func(a, b *Scored) int) []Recommendation {
	picked := make([]*Scored, 0, len(t.rows))
	for i := range t.rows {
		if keep == nil || keep(&t.rows[i]) {
			picked = append(picked, &t.rows[i])
		}
	}
	slices.SortStableFunc(picked, order)
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}
	return t.format(picked, category)
}

// TopOverall orders the whole corpus by combined score.
func (t *Table) TopOverall(limit int) []Recommendation {
	return t.view("Top Overall", limit, nil, byCombined)
}

// ByLanguage keeps repositories whose primary language is language.
func (t *Table) ByLanguage(language string, limit int) []Recommendation {
	return t.view("Top "+language, limit, func(s *Scored) bool {
		return strings.EqualFold(s.Repo.Language, language)
	}, byCombined)
}

// ByTopic keeps repositories tagged with topic.
func (t *Table) ByTopic(topic string, limit int) []Recommendation {
	return t.view("Topic: "+topic, limit, func(s *Scored) bool {
		return s.Repo.HasTopic(topic)
	}, byCombined)
}

// ByOrganization keeps repositories owned by org.
func (t *Table) ByOrganization(org string, limit int) []Recommendation {
	return t.view("Organization: "+org, limit, func(s *Scored) bool {
		return strings.EqualFold(s.Repo.Owner, org)
	}, byCombined)
}

// RisingStars keeps live repositories gaining at least minVelocity stars a
// day, fastest first.
func (t *Table) RisingStars(minVelocity float64, limit int) []Recommendation {
	return t.view("Rising Stars", limit, func(s *Scored) bool {
		return s.StarVelocity >= minVelocity && !s.Repo.Archived
	}, func(a, b *Scored) int { return cmp.Compare(b.StarVelocity, a.StarVelocity) })
}

// HiddenGems keeps live repositories with at most maxStars stars and quality
// of at least minQuality, best quality first.
func (t *Table) HiddenGems(maxStars int, minQuality float64, limit int) []Recommendation {
	return t.view("Hidden Gems", limit, func(s *Scored) bool {
		return s.Repo.Stars <= maxStars && s.Quality >= minQuality && !s.Repo.Archived
	}, func(a, b *Scored) int { return cmp.Compare(b.Quality, a.Quality) })
}

// RecentlyUpdated keeps live repositories updated within maxDays, ordered by
// combined score with the most recent update breaking ties.
func (t *Table) RecentlyUpdated(maxDays, limit int) []Recommendation {
	return t.view("Recently Updated", limit, func(s *Scored) bool {
		return s.DaysSinceUpdate >= 0 && s.DaysSinceUpdate <= maxDays && !s.Repo.Archived
	}, func(a, b *Scored) int {
		if c := byCombined(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.DaysSinceUpdate, b.DaysSinceUpdate)
	})
}

var educationalKeywords = []string{"learn", "tutorial", "guide", "course", "education", "book", "awesome"}

func isEducational(r models.Repo) bool {
	desc := strings.ToLower(r.Description)
	name := strings.ToLower(r.Name)
	for _, kw := range educationalKeywords {
		if strings.Contains(desc, kw) || strings.Contains(name, kw) {
			return true
		}
		for _, topic := range r.Topics {
			if strings.Contains(strings.ToLower(topic), kw) {
				return true
			}
		}
	}
	return false
}

// Educational keeps repositories that read as learning material.
func (t *Table) Educational(limit int) []Recommendation {
	return t.view("Educational", limit, func(s *Scored) bool {
		return isEducational(s.Repo)
	}, byCombined)
}

// ProductionReady keeps licensed, live, high-quality repositories with at
// least minStars stars that were pushed within the last 90 days.
func (t *Table) ProductionReady(minStars, limit int) []Recommendation {
	return t.view("Production Ready", limit, func(s *Scored) bool {
		r := s.Repo
		return r.Stars >= minStars &&
			r.License != "" &&
			s.Quality >= 0.7 &&
			!r.Archived &&
			r.PushedWithin(t.now, 90)
	}, byCombined)
}

// View keys returned by All.
const (
	ViewTopOverall      = "top_overall"
	ViewRisingStars     = "rising_stars"
	ViewHiddenGems      = "hidden_gems"
	ViewRecentlyUpdated = "recently_updated"
	ViewEducational     = "educational"
	ViewProductionReady = "production_ready"
)

// ViewOrder is the presentation order of the views returned by All.
var ViewOrder = []string{
	ViewTopOverall, ViewRisingStars, ViewHiddenGems,
	ViewRecentlyUpdated, ViewEducational, ViewProductionReady,
}

// All runs the standard view set with limit items per view.
func (t *Table) All(limit int, th Thresholds) map[string][]Recommendation {
	return map[string][]Recommendation{
		ViewTopOverall:      t.TopOverall(limit),
		ViewRisingStars:     t.RisingStars(th.RisingVelocity, limit),
		ViewHiddenGems:      t.HiddenGems(th.GemMaxStars, th.GemMinQuality, limit),
		ViewRecentlyUpdated: t.RecentlyUpdated(th.RecentWindowDays, limit),
		ViewEducational:     t.Educational(limit),
		ViewProductionReady: t.ProductionReady(th.ProductionStars, limit),
	}
}
