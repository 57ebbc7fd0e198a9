package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/repoboard/internal/cache"
	"github.com/kevinmichaelchen/repoboard/internal/config"
	"github.com/kevinmichaelchen/repoboard/internal/embedding"
	"github.com/kevinmichaelchen/repoboard/internal/httpx"
	"github.com/kevinmichaelchen/repoboard/internal/llm"
	"github.com/kevinmichaelchen/repoboard/internal/logging"
	"github.com/kevinmichaelchen/repoboard/internal/store"
)

var (
	verbose     bool
	profilePath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.FromContext(ctx).Error(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "repoboard",
		Short:         "Discover, label, score and rank GitHub repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(os.Stderr, verbose)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&profilePath, "profile", "", "Path to a TOML curation profile")

	root.AddCommand(schemaCmd(), curateCmd(), signalsCmd(), recommendCmd(), boardCmd(), searchCmd(), statsCmd())
	return root
}

// app holds what every subcommand shares: configuration, the curation
// profile, the store and the HTTP response cache.
type app struct {
	cfg     *config.Config
	profile config.Profile
	store   store.Store
	cache   cache.Cache
}

func setup(ctx context.Context) (*app, error) {
	cfg := config.Load()
	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, profile: profile, store: st, cache: cache.NewMemory(4096, cfg.CacheTTL)}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logging.FromContext(ctx).Warn("redis unavailable, caching in memory", "addr", cfg.RedisAddr, "err", err)
		} else {
			a.cache = rc
		}
	}
	return a, nil
}

func (a *app) Close() {
	_ = a.cache.Close()
	_ = a.store.Close()
}

// httpClient is an httpx client for third-party APIs sharing the app cache.
func (a *app) httpClient() *httpx.Client {
	return httpx.NewClient(a.cfg.HTTPTimeout,
		map[string]string{"User-Agent": "repoboard/1.0"},
		httpx.WithCache(a.cache, a.cfg.CacheTTL),
	)
}

// completer returns the configured LLM, or nil when no credentials are set.
func (a *app) completer(ctx context.Context) (llm.Completer, error) {
	if !a.cfg.LLMEnabled() {
		return nil, nil
	}
	if a.cfg.LLMProvider == "gemini" {
		g, err := llm.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return llm.NewClient(a.cfg.LLMBaseURL, a.cfg.LLMAPIKey, a.cfg.LLMModel), nil
}

// embedder returns the embedding client and its model name, or nil without
// an API key.
func (a *app) embedder() (embedding.Embedder, string) {
	if a.cfg.EmbeddingAPIKey == "" {
		return nil, ""
	}
	c := embedding.NewClient(a.cfg.EmbeddingBaseURL, a.cfg.EmbeddingAPIKey, a.cfg.EmbeddingModel)
	return c, c.Model()
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create or migrate the store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s)\n", a.cfg.StoreDriver)
			return nil
		},
	}
}
