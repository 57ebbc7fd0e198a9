package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"GITHUB_API_URL", "LLM_PROVIDER", "LLM_MODEL", "EMBEDDING_BASE_URL", "STORE_DRIVER", "FETCH_PAGE_DELAY"} {
		t.Setenv(k, "")
	}
	t.Setenv("LLM_BASE_URL", "http://llm.local/v1")
	t.Setenv("SURREAL_URL", "ws://db:8000/rpc/")

	cfg := Load()
	assert.Equal(t, "https://api.github.com", cfg.GitHubAPIURL)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "http://llm.local/v1", cfg.EmbeddingBaseURL)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 500*time.Millisecond, cfg.PageDelay)
	assert.Equal(t, "ws://db:8000/rpc", cfg.SurrealURL)
}

func TestDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 3 * time.Second},
		{"750ms", 750 * time.Millisecond},
		{"0.5", 500 * time.Millisecond},
		{"2", 2 * time.Second},
		{"bogus", 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("REPOBOARD_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, durationEnv("REPOBOARD_TEST_DURATION", 3*time.Second))
		})
	}
}

func TestLLMEnabled(t *testing.T) {
	assert.False(t, (&Config{LLMProvider: "openai"}).LLMEnabled())
	assert.True(t, (&Config{LLMProvider: "openai", LLMAPIKey: "k"}).LLMEnabled())
	assert.False(t, (&Config{LLMProvider: "gemini", LLMAPIKey: "k"}).LLMEnabled())
	assert.True(t, (&Config{LLMProvider: "gemini", GeminiAPIKey: "g"}).LLMEnabled())
}

func TestLoadProfile(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		p, err := LoadProfile("")
		require.NoError(t, err)
		assert.Len(t, p.Languages, 10)
		assert.Len(t, p.Topics, 20)
		assert.Len(t, p.Organizations, 10)
		assert.Equal(t, 50, p.PerCategoryLimit)
	})

	t.Run("overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.toml")
		body := `
languages = ["go", "rust"]
per_category_limit = 20
preset = "momentum"
hidden_gems = false

[thresholds]
gem_max_stars = 300
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		p, err := LoadProfile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "rust"}, p.Languages)
		assert.Len(t, p.Topics, 20)
		assert.Equal(t, 20, p.PerCategoryLimit)
		assert.Equal(t, "momentum", p.Preset)
		assert.False(t, p.HiddenGems)
		assert.True(t, p.Trending)
		assert.Equal(t, 300, p.Thresholds.GemMaxStars)
		assert.Equal(t, 0.7, p.Thresholds.GemMinQuality)
	})

	t.Run("invalid limit", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.toml")
		require.NoError(t, os.WriteFile(path, []byte("per_category_limit = 0\n"), 0o644))
		_, err := LoadProfile(path)
		assert.Error(t, err)
	})
}
