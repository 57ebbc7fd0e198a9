package models

import "time"

// InsightWeights are the fixed sub-score weights of the insightfulness total.
var InsightWeights = struct {
	Innovation       float64
	BestPractices    float64
	EducationalValue float64
	ProductionUse    float64
	CommunityImpact  float64
	TechnicalDepth   float64
}{0.25, 0.20, 0.20, 0.15, 0.10, 0.10}

// Insight holds the six insightfulness sub-scores and their weighted total.
type Insight struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	RepoID           uint      `json:"repo_id" gorm:"uniqueIndex;not null"`
	Innovation       float64   `json:"innovation"`
	BestPractices    float64   `json:"best_practices"`
	EducationalValue float64   `json:"educational_value"`
	ProductionUse    float64   `json:"production_use"`
	CommunityImpact  float64   `json:"community_impact"`
	TechnicalDepth   float64   `json:"technical_depth"`
	Total            float64   `json:"total_insightfulness"`
	ComputedAt       time.Time `json:"computed_at"`
}

// SocialSignals is the real-world footprint of a repository outside GitHub.
type SocialSignals struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	RepoID             uint      `json:"repo_id" gorm:"uniqueIndex;not null"`
	RedditMentions     int       `json:"reddit_mentions"`
	RedditUpvotes      int       `json:"reddit_upvotes"`
	HNMentions         int       `json:"hn_mentions"`
	HNPoints           int       `json:"hn_points"`
	StackOverflowCount int       `json:"stackoverflow_questions"`
	StackOverflowViews int       `json:"stackoverflow_views"`
	NPMDownloads       int       `json:"npm_downloads"`
	PyPIDownloads      int       `json:"pypi_downloads"`
	Aggregate          float64   `json:"social_score"`
	FetchedAt          time.Time `json:"fetched_at"`
}

// CurationScore is the ranker's final blended scalar for one repository.
type CurationScore struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	RepoID     uint      `json:"repo_id" gorm:"uniqueIndex;not null"`
	Popularity float64   `json:"popularity"`
	Velocity   float64   `json:"velocity"`
	Activity   float64   `json:"activity"`
	Quality    float64   `json:"quality"`
	Insight    float64   `json:"insight"`
	Social     float64   `json:"social"`
	HasSocial  bool      `json:"has_social"`
	Total      float64   `json:"curation_score"`
	Preset     string    `json:"preset"`
	RunID      string    `json:"run_id" gorm:"index"`
	ComputedAt time.Time `json:"computed_at"`
}

// Board is a curator-authored ordered collection of repositories.
type Board struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description"`
	Category    string    `json:"category" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
}

// BoardItem places a repository at an explicit rank within a board.
type BoardItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BoardID   uint      `json:"board_id" gorm:"uniqueIndex:idx_board_repo;not null"`
	RepoID    uint      `json:"repo_id" gorm:"uniqueIndex:idx_board_repo;not null"`
	Rank      int       `json:"rank"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// Embedding is the stored vector for a repository's summary text.
type Embedding struct {
	ID     uint      `json:"id" gorm:"primaryKey"`
	RepoID uint      `json:"repo_id" gorm:"uniqueIndex;not null"`
	Model  string    `json:"model"`
	Vector []float32 `json:"vector" gorm:"serializer:json"`
}

// Stats are per-entity counts plus a breakdown of repositories by category label.
type Stats struct {
	Repos      int64            `json:"repos"`
	Summaries  int64            `json:"summaries"`
	Labels     int64            `json:"labels"`
	Insights   int64            `json:"insights"`
	Signals    int64            `json:"social_signals"`
	Scores     int64            `json:"scores"`
	Boards     int64            `json:"boards"`
	Categories map[string]int64 `json:"categories"`
}
