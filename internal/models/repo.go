package models

import (
	"math"
	"strings"
	"time"
)

// Repo is the canonical repository record. URL is the identity key; ID is the
// store's surrogate key and is never derived from upstream data.
type Repo struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	URL              string         `json:"url" gorm:"uniqueIndex;not null"`
	Owner            string         `json:"owner" gorm:"index"`
	Name             string         `json:"name"`
	FullName         string         `json:"full_name" gorm:"index"`
	Description      string         `json:"description"`
	Readme           string         `json:"readme"`
	Language         string         `json:"language" gorm:"index"`
	Languages        map[string]int `json:"languages" gorm:"serializer:json"`
	Stars            int            `json:"stars"`
	Forks            int            `json:"forks"`
	Watchers         int            `json:"watchers"`
	OpenIssues       int            `json:"open_issues"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime:false"`
	PushedAt         time.Time      `json:"pushed_at"`
	DefaultBranch    string         `json:"default_branch"`
	Topics           []string       `json:"topics" gorm:"serializer:json"`
	License          string         `json:"license"`
	Archived         bool           `json:"archived"`
	HasWiki          bool           `json:"has_wiki"`
	HasPages         bool           `json:"has_pages"`
	FileTree         []string       `json:"file_tree" gorm:"serializer:json"`
	CommitCount      int            `json:"commit_count"`
	ContributorCount int            `json:"contributor_count"`
	StarVelocity     float64        `json:"star_velocity"`
	RefreshedAt      time.Time      `json:"refreshed_at"`
}

// AgeDays returns whole days since creation, never less than 1.
func (r Repo) AgeDays(now time.Time) int {
	if r.CreatedAt.IsZero() {
		return 1
	}
	return max(1, DaysBetween(r.CreatedAt, now))
}

// DaysSincePush returns whole days since the last push, or -1 when unknown.
func (r Repo) DaysSincePush(now time.Time) int {
	if r.PushedAt.IsZero() {
		return -1
	}
	return DaysBetween(r.PushedAt, now)
}

// DaysSinceUpdate returns whole days since the last update, or -1 when unknown.
func (r Repo) DaysSinceUpdate(now time.Time) int {
	if r.UpdatedAt.IsZero() {
		return -1
	}
	return DaysBetween(r.UpdatedAt, now)
}

// PushedWithin reports whether the last push happened less than days ago.
func (r Repo) PushedWithin(now time.Time, days int) bool {
	d := r.DaysSincePush(now)
	return d >= 0 && d < days
}

// HasTopic reports whether topic is present, case-insensitively.
func (r Repo) HasTopic(topic string) bool {
	for _, t := range r.Topics {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}

// StarVelocity is stars accumulated per day of age.
func StarVelocity(stars, ageDays int) float64 {
	return float64(stars) / float64(max(1, ageDays))
}

// DaysBetween returns the whole number of days from a to b, floored like
// timedelta.days.
func DaysBetween(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}

// Summary is produced by an external summarizer and is read-only here.
type Summary struct {
	ID          uint     `json:"id" gorm:"primaryKey"`
	RepoID      uint     `json:"repo_id" gorm:"uniqueIndex;not null"`
	Synopsis    string   `json:"summary"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags" gorm:"serializer:json"`
	SkillLevel  int      `json:"skill_level_numeric"`
	SkillName   string   `json:"skill_level"`
	HealthLabel string   `json:"project_health"`
	HealthScore float64  `json:"project_health_score"`
	UseCases    []string `json:"use_cases" gorm:"serializer:json"`
}
