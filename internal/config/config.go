package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	GitHubToken  string
	GitHubAPIURL string

	LLMProvider string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMModel    string

	GeminiAPIKey string
	GeminiModel  string

	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	SurrealURL  string
	SurrealNS   string
	SurrealDB   string
	SurrealUser string
	SurrealPass string

	RedisAddr string
	CacheTTL  time.Duration

	PageDelay      time.Duration
	CriterionDelay time.Duration
	HTTPTimeout    time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL: os.Getenv("GITHUB_API_URL"),

		LLMProvider: os.Getenv("LLM_PROVIDER"),
		LLMBaseURL:  os.Getenv("LLM_BASE_URL"),
		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		LLMModel:    os.Getenv("LLM_MODEL"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),

		EmbeddingBaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:   os.Getenv("EMBEDDING_MODEL"),

		StoreDriver: os.Getenv("STORE_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),

		SurrealURL:  os.Getenv("SURREAL_URL"),
		SurrealNS:   os.Getenv("SURREAL_NS"),
		SurrealDB:   os.Getenv("SURREAL_DB"),
		SurrealUser: os.Getenv("SURREAL_USER"),
		SurrealPass: os.Getenv("SURREAL_PASS"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		CacheTTL:  durationEnv("CACHE_TTL", 24*time.Hour),

		PageDelay:      durationEnv("FETCH_PAGE_DELAY", 500*time.Millisecond),
		CriterionDelay: durationEnv("FETCH_CRITERION_DELAY", time.Second),
		HTTPTimeout:    durationEnv("HTTP_TIMEOUT", 10*time.Second),
	}

	// The SDK appends /rpc automatically
	cfg.SurrealURL = strings.TrimSuffix(cfg.SurrealURL, "/rpc")
	cfg.SurrealURL = strings.TrimSuffix(cfg.SurrealURL, "/")

	if cfg.GitHubAPIURL == "" {
		cfg.GitHubAPIURL = "https://api.github.com"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "gpt-4o-mini"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.5-flash"
	}
	if cfg.EmbeddingBaseURL == "" {
		cfg.EmbeddingBaseURL = cfg.LLMBaseURL
	}
	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = cfg.LLMAPIKey
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "sqlite"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "repoboard.db"
	}

	return cfg
}

// LLMEnabled reports whether credentials exist for the configured provider.
func (c *Config) LLMEnabled() bool {
	if c.LLMProvider == "gemini" {
		return c.GeminiAPIKey != ""
	}
	return c.LLMAPIKey != ""
}

// durationEnv accepts Go durations ("750ms") or plain seconds ("2", "0.5").
func durationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}

// Profile selects what a curation run fetches and how it ranks.
type Profile struct {
	Languages     []string `toml:"languages"`
	Topics        []string `toml:"topics"`
	Organizations []string `toml:"organizations"`
	AwesomeLists  []string `toml:"awesome_lists"`

	PerCategoryLimit int    `toml:"per_category_limit"`
	Preset           string `toml:"preset"`

	Trending        bool `toml:"trending"`
	RecentlyUpdated bool `toml:"recently_updated"`
	RisingStars     bool `toml:"rising_stars"`
	HiddenGems      bool `toml:"hidden_gems"`

	Thresholds Thresholds `toml:"thresholds"`
}

type Thresholds struct {
	RisingVelocity   float64 `toml:"rising_velocity"`
	GemMaxStars      int     `toml:"gem_max_stars"`
	GemMinQuality    float64 `toml:"gem_min_quality"`
	ProductionStars  int     `toml:"production_stars"`
	RecentWindowDays int     `toml:"recent_window_days"`
}

var (
	TopLanguages = []string{
		"python", "javascript", "typescript", "java", "go", "rust",
		"cpp", "c", "csharp", "php", "ruby", "swift", "kotlin",
		"dart", "scala", "r", "matlab", "shell", "html", "css",
	}

	PopularTopics = []string{
		"machine-learning", "deep-learning", "artificial-intelligence",
		"web-development", "frontend", "backend", "full-stack",
		"react", "vue", "angular", "nodejs", "django", "flask",
		"docker", "kubernetes", "devops", "ci-cd",
		"blockchain", "cryptocurrency", "web3",
		"mobile-app", "ios", "android", "react-native",
		"data-science", "data-visualization", "analytics",
		"security", "cryptography", "authentication",
		"game-development", "game-engine",
		"api", "rest-api", "graphql",
		"database", "sql", "nosql",
		"testing", "test-automation",
		"automation", "scraping", "bot",
	}

	TopOrgs = []string{
		"google", "facebook", "microsoft", "apple", "amazon",
		"netflix", "uber", "airbnb", "twitter", "github",
		"mozilla", "apache", "kubernetes", "tensorflow", "pytorch",
		"nvidia", "openai", "anthropic", "huggingface",
	}
)

// DefaultProfile scans the top 10 languages, top 20 topics and top 10 orgs.
func DefaultProfile() Profile {
	return Profile{
		Languages:        slices.Clone(TopLanguages[:10]),
		Topics:           slices.Clone(PopularTopics[:20]),
		Organizations:    slices.Clone(TopOrgs[:10]),
		PerCategoryLimit: 50,
		Preset:           "engine",
		Trending:         true,
		RecentlyUpdated:  true,
		RisingStars:      true,
		HiddenGems:       true,
		Thresholds: Thresholds{
			RisingVelocity:   5.0,
			GemMaxStars:      500,
			GemMinQuality:    0.7,
			ProductionStars:  1000,
			RecentWindowDays: 30,
		},
	}
}

// LoadProfile decodes a TOML profile over the defaults. An empty path
// returns DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return p, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if p.PerCategoryLimit <= 0 {
		return p, fmt.Errorf("profile %s: per_category_limit must be positive", path)
	}
	return p, nil
}
