package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(_ context.Context, _, user string) (string, error) {
	f.prompt = user
	return f.reply, f.err
}

const goodReply = "```json\n" + `{
  "summary": "A fast task runner for Go projects.",
  "category": "CLI Tool",
  "tags": ["go", "build"],
  "skill_level": "Intermediate",
  "skill_level_numeric": 5,
  "project_health": "Healthy",
  "project_health_score": 0.85,
  "use_cases": ["Production build pipelines"]
}` + "\n```"

var rocket = models.Repo{
	ID:          9,
	FullName:    "acme/rocket",
	Description: "Fast task runner for the terminal",
	Topics:      []string{"Go", "cli"},
	Readme:      "# rocket\n\nInstall with go install. Usage: rocket run. See docs.",
	License:     "MIT",
	PushedAt:    testNow.AddDate(0, 0, -3),
}

func TestSummarizeWithLLM(t *testing.T) {
	f := &fakeLLM{reply: goodReply}
	s, src := New(f, clock).Summarize(context.Background(), rocket, true)

	assert.Equal(t, models.SourceLLM, src)
	assert.Equal(t, uint(9), s.RepoID)
	assert.Equal(t, "A fast task runner for Go projects.", s.Synopsis)
	assert.Equal(t, "CLI Tool", s.Category)
	assert.Equal(t, 5, s.SkillLevel)
	assert.InDelta(t, 0.85, s.HealthScore, 1e-9)
	assert.Equal(t, []string{"Production build pipelines"}, s.UseCases)
	assert.Contains(t, f.prompt, "Repository: acme/rocket")
	assert.Contains(t, f.prompt, "README excerpt:")
}

func TestSummarizeFallsBack(t *testing.T) {
	tests := map[string]*fakeLLM{
		"call error":     {err: errors.New("timeout")},
		"not json":       {reply: "sure, here you go"},
		"bad category":   {reply: strings.Replace(goodReply, "CLI Tool", "Toys", 1)},
		"skill too high": {reply: strings.Replace(goodReply, `"skill_level_numeric": 5`, `"skill_level_numeric": 11`, 1)},
		"unknown key":    {reply: `{"summary": "x", "stars": 3}`},
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			s, src := New(f, clock).Summarize(context.Background(), rocket, true)
			assert.Equal(t, models.SourceHeuristic, src)
			assert.Equal(t, uint(9), s.RepoID)
			assert.Equal(t, rocket.Description, s.Synopsis)
		})
	}
}

func TestSummarizeLLMDisabled(t *testing.T) {
	f := &fakeLLM{reply: goodReply}
	_, src := New(f, clock).Summarize(context.Background(), rocket, false)
	assert.Equal(t, models.SourceHeuristic, src)
	assert.Empty(t, f.prompt)

	_, src = New(nil, clock).Summarize(context.Background(), rocket, true)
	assert.Equal(t, models.SourceHeuristic, src)
}

func TestParseFillsNames(t *testing.T) {
	s, err := Parse(`{"summary": "x", "category": "Library", "skill_level_numeric": 9, "project_health_score": 0.2}`)
	require.NoError(t, err)
	assert.Equal(t, "Expert", s.SkillName)
	assert.Equal(t, "At Risk", s.HealthLabel)
	assert.NotNil(t, s.Tags)
	assert.NotNil(t, s.UseCases)

	_, err = Parse(`{"category": "Library", "skill_level_numeric": 5, "project_health_score": 0.5}`)
	assert.ErrorIs(t, err, ErrInvalidSummary)
}

func TestHeuristic(t *testing.T) {
	s := Heuristic(rocket, testNow)

	assert.Equal(t, rocket.Description, s.Synopsis)
	assert.Equal(t, "CLI Tool", s.Category)
	assert.Equal(t, []string{"go", "cli"}, s.Tags)
	assert.Equal(t, 5, s.SkillLevel)
	assert.Equal(t, "Intermediate", s.SkillName)
	// active 0.4 + docs 3/5*0.3 + license 0.15
	assert.InDelta(t, 0.73, s.HealthScore, 1e-9)
	assert.Equal(t, "Healthy", s.HealthLabel)
	assert.Equal(t, []string{"Command-line tooling"}, s.UseCases)
	for _, uc := range s.UseCases {
		assert.NotContains(t, strings.ToLower(uc), "production")
	}
}

func TestHeuristicSynopsis(t *testing.T) {
	r := models.Repo{FullName: "acme/x", Readme: "# x\n\n[![ci](badge)](link)\n\nA   tiny\nparser.\n\nMore."}
	assert.Equal(t, "A tiny parser.", Heuristic(r, testNow).Synopsis)

	assert.Equal(t, "acme/y repository", Heuristic(models.Repo{FullName: "acme/y"}, testNow).Synopsis)

	long := models.Repo{Description: strings.Repeat("é", maxSynopsis)}
	got := Heuristic(long, testNow).Synopsis
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxSynopsis)
}

func TestHeuristicSkill(t *testing.T) {
	assert.Equal(t, 3, Heuristic(models.Repo{Description: "Learn Go by example"}, testNow).SkillLevel)
	assert.Equal(t, 7, Heuristic(models.Repo{Description: "A distributed key-value store"}, testNow).SkillLevel)
	assert.Equal(t, "Advanced", SkillName(7))
}
