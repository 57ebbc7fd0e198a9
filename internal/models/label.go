package models

import "time"

// LabelBundle is the full five-facet labeling of one repository.
type LabelBundle struct {
	PrimaryCategory []string         `json:"primary_category"`
	Quality         QualityLabels    `json:"quality"`
	Technical       TechnicalLabels  `json:"technical"`
	Community       CommunityLabels  `json:"community"`
	Discovery       []DiscoveryLabel `json:"discovery"`
}

// QualityLabels holds the six quality sub-labels. The heuristic strategy
// derives Recognition and Innovation from the other facets.
type QualityLabels struct {
	StarQuality   string `json:"star_quality"`
	Documentation string `json:"documentation"`
	Maintenance   string `json:"maintenance"`
	UseCase       string `json:"use_case"`
	Recognition   string `json:"recognition"`
	Innovation    string `json:"innovation"`
}

type TechnicalLabels struct {
	Languages    []string `json:"languages"`
	Frameworks   []string `json:"frameworks"`
	Architecture []string `json:"architecture"`
	Platform     []string `json:"platform"`
}

type CommunityLabels struct {
	Size     string `json:"size"`
	Activity string `json:"activity"`
}

type DiscoveryLabel string

const (
	HiddenGem    DiscoveryLabel = "Hidden Gem"
	RisingStar   DiscoveryLabel = "Rising Star"
	Established  DiscoveryLabel = "Established"
	Experimental DiscoveryLabel = "Experimental"
	Educational  DiscoveryLabel = "Educational"
)

// HasDiscovery reports whether d was assigned.
func (b LabelBundle) HasDiscovery(d DiscoveryLabel) bool {
	for _, l := range b.Discovery {
		if l == d {
			return true
		}
	}
	return false
}

// LabelType names the dimension a persisted Label row belongs to.
type LabelType string

const (
	LabelCategory  LabelType = "category"
	LabelQuality   LabelType = "quality"
	LabelTechnical LabelType = "technical"
	LabelCommunity LabelType = "community"
	LabelDiscovery LabelType = "discovery"
)

// LabelSource records which strategy produced a label.
type LabelSource string

const (
	SourceLLM       LabelSource = "llm"
	SourceHeuristic LabelSource = "heuristic"
)

// Label is one persisted (type, value, confidence, source) tuple. Facet
// narrows Type for quality/technical/community rows, e.g. "maintenance".
type Label struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	RepoID     uint        `json:"repo_id" gorm:"index;not null"`
	Type       LabelType   `json:"label_type" gorm:"index"`
	Facet      string      `json:"facet"`
	Value      string      `json:"label_value"`
	Confidence float64     `json:"confidence"`
	Source     LabelSource `json:"source"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Rows flattens the bundle into persisted label rows.
func (b LabelBundle) Rows(repoID uint, source LabelSource) []Label {
	var out []Label
	add := func(t LabelType, facet, value string, conf float64) {
		if value == "" {
			return
		}
		out = append(out, Label{RepoID: repoID, Type: t, Facet: facet, Value: value, Confidence: conf, Source: source})
	}

	for _, c := range b.PrimaryCategory {
		add(LabelCategory, "", c, 0.8)
	}

	q := b.Quality
	add(LabelQuality, "star_quality", q.StarQuality, 0.7)
	add(LabelQuality, "documentation", q.Documentation, 0.7)
	add(LabelQuality, "maintenance", q.Maintenance, 0.7)
	add(LabelQuality, "use_case", q.UseCase, 0.7)
	add(LabelQuality, "recognition", q.Recognition, 0.7)
	add(LabelQuality, "innovation", q.Innovation, 0.7)

	t := b.Technical
	for _, v := range t.Languages {
		add(LabelTechnical, "languages", v, 0.8)
	}
	for _, v := range t.Frameworks {
		add(LabelTechnical, "frameworks", v, 0.8)
	}
	for _, v := range t.Architecture {
		add(LabelTechnical, "architecture", v, 0.8)
	}
	for _, v := range t.Platform {
		add(LabelTechnical, "platform", v, 0.8)
	}

	add(LabelCommunity, "size", b.Community.Size, 0.7)
	add(LabelCommunity, "activity", b.Community.Activity, 0.7)

	for _, d := range b.Discovery {
		add(LabelDiscovery, "", string(d), 0.6)
	}
	return out
}
