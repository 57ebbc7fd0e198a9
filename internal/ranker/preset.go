package ranker

import (
	"fmt"
	"strings"
)

// Preset names one historical score blend.
type Preset string

const (
	// Engine: 0.3 popularity, 0.25 velocity, 0.25 activity, 0.2 quality.
	Engine Preset = "engine"
	// Curated: 0.4 stars/10000, 0.3 insight, 0.3 curation.
	Curated Preset = "curated"
	// Simple: 0.5 min(stars/1000, 1), 0.3 insight, 0.2 curation.
	Simple Preset = "simple"
	// Quick: 0.4 popularity, 0.3 velocity, 0.2 activity, 0.1 quick quality.
	Quick Preset = "quick"
	// Momentum: 0.35 velocity/100, 0.25 health, 0.2 stars/100000, 0.2 activity.
	Momentum Preset = "momentum"
)

var presets = []Preset{Engine, Curated, Simple, Quick, Momentum}

// Presets lists every known preset.
func Presets() []Preset { return append([]Preset(nil), presets...) }

// ParsePreset resolves a preset by name. The empty string selects Engine.
func ParsePreset(name string) (Preset, error) {
	if name == "" {
		return Engine, nil
	}
	for _, p := range presets {
		if strings.EqualFold(string(p), name) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown preset %q (want one of %v)", name, presets)
}

// combine applies p's blend to the precomputed sub-scores of r.
func (p Preset) combine(r *Scored) float64 {
	switch p {
	case Curated:
		return 0.4*float64(r.Repo.Stars)/10000 + 0.3*r.InsightScore + 0.3*r.Curation
	case Simple:
		return 0.5*min(float64(r.Repo.Stars)/1000, 1) + 0.3*r.InsightScore + 0.2*r.Curation
	case Quick:
		return 0.4*r.Popularity + 0.3*r.Velocity + 0.2*r.Activity + 0.1*r.quickQuality
	case Momentum:
		return 0.35*min(r.StarVelocity/100, 1) + 0.25*r.Health + 0.20*min(float64(r.Repo.Stars)/100000, 1) + 0.20*r.Activity
	default:
		return 0.3*r.Popularity + 0.25*r.Velocity + 0.25*r.Activity + 0.2*r.Quality
	}
}
