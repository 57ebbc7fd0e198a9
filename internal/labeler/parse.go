package labeler

import (
	"fmt"

	"github.com/kevinmichaelchen/repoboard/internal/llm"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// wireBundle mirrors the JSON contract. Pointers distinguish missing keys
// from empty values.
type wireBundle struct {
	PrimaryCategory *[]string      `json:"primary_category"`
	Quality         *wireQuality   `json:"quality"`
	Technical       *wireTechnical `json:"technical"`
	Community       *wireCommunity `json:"community"`
	Discovery       *[]string      `json:"discovery"`
}

type wireQuality struct {
	StarQuality   *string `json:"star_quality"`
	Documentation *string `json:"documentation"`
	Maintenance   *string `json:"maintenance"`
	UseCase       *string `json:"use_case"`
	Recognition   *string `json:"recognition"`
	Innovation    *string `json:"innovation"`
}

type wireTechnical struct {
	Languages    *[]string `json:"languages"`
	Frameworks   *[]string `json:"frameworks"`
	Architecture *[]string `json:"architecture"`
	Platform     *[]string `json:"platform"`
}

type wireCommunity struct {
	Size     *string `json:"size"`
	Activity *string `json:"activity"`
}

// ParseBundle decodes an LLM reply strictly: every key must be present with
// the right type and every enumerated value must come from its vocabulary.
func ParseBundle(raw string) (models.LabelBundle, error) {
	var w wireBundle
	if err := llm.DecodeJSON(raw, &w); err != nil {
		return models.LabelBundle{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if w.PrimaryCategory == nil || w.Quality == nil || w.Technical == nil || w.Community == nil || w.Discovery == nil {
		return models.LabelBundle{}, fmt.Errorf("%w: missing facet", ErrInvalidBundle)
	}

	var b models.LabelBundle
	var err error

	if len(*w.PrimaryCategory) == 0 {
		return b, fmt.Errorf("%w: empty primary_category", ErrInvalidBundle)
	}
	for _, c := range *w.PrimaryCategory {
		if !in(PrimaryCategories, c) {
			return b, fmt.Errorf("%w: unknown category %q", ErrInvalidBundle, c)
		}
	}
	b.PrimaryCategory = *w.PrimaryCategory

	q := w.Quality
	if b.Quality.StarQuality, err = pick("star_quality", q.StarQuality, StarQualityLabels); err != nil {
		return b, err
	}
	if b.Quality.Documentation, err = pick("documentation", q.Documentation, DocumentationLabels); err != nil {
		return b, err
	}
	if b.Quality.Maintenance, err = pick("maintenance", q.Maintenance, MaintenanceLabels); err != nil {
		return b, err
	}
	if b.Quality.UseCase, err = pick("use_case", q.UseCase, UseCaseLabels); err != nil {
		return b, err
	}
	if b.Quality.Recognition, err = pick("recognition", q.Recognition, RecognitionLabels); err != nil {
		return b, err
	}
	if b.Quality.Innovation, err = pick("innovation", q.Innovation, InnovationLabels); err != nil {
		return b, err
	}

	t := w.Technical
	if t.Languages == nil || t.Frameworks == nil || t.Architecture == nil || t.Platform == nil {
		return b, fmt.Errorf("%w: missing technical key", ErrInvalidBundle)
	}
	for _, p := range *t.Platform {
		if !in(PlatformLabels, p) {
			return b, fmt.Errorf("%w: unknown platform %q", ErrInvalidBundle, p)
		}
	}
	b.Technical = models.TechnicalLabels{
		Languages:    *t.Languages,
		Frameworks:   *t.Frameworks,
		Architecture: *t.Architecture,
		Platform:     *t.Platform,
	}
	if len(b.Technical.Platform) == 0 {
		b.Technical.Platform = []string{"Library"}
	}

	if b.Community.Size, err = pick("community.size", w.Community.Size, CommunitySizeLabels); err != nil {
		return b, err
	}
	if b.Community.Activity, err = pick("community.activity", w.Community.Activity, ActivityLabels); err != nil {
		return b, err
	}

	b.Discovery = make([]models.DiscoveryLabel, 0, len(*w.Discovery))
	for _, d := range *w.Discovery {
		if !in(DiscoveryLabels, d) {
			return b, fmt.Errorf("%w: unknown discovery label %q", ErrInvalidBundle, d)
		}
		b.Discovery = append(b.Discovery, models.DiscoveryLabel(d))
	}
	return b, nil
}

func pick(key string, v *string, vocab []string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidBundle, key)
	}
	if !in(vocab, *v) {
		return "", fmt.Errorf("%w: %s %q not in vocabulary", ErrInvalidBundle, key, *v)
	}
	return *v, nil
}
