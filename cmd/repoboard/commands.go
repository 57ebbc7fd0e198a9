package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/repoboard/internal/config"
	"github.com/kevinmichaelchen/repoboard/internal/export"
	"github.com/kevinmichaelchen/repoboard/internal/github"
	"github.com/kevinmichaelchen/repoboard/internal/httpx"
	"github.com/kevinmichaelchen/repoboard/internal/insight"
	"github.com/kevinmichaelchen/repoboard/internal/labeler"
	"github.com/kevinmichaelchen/repoboard/internal/logging"
	"github.com/kevinmichaelchen/repoboard/internal/models"
	"github.com/kevinmichaelchen/repoboard/internal/pipeline"
	"github.com/kevinmichaelchen/repoboard/internal/ranker"
	"github.com/kevinmichaelchen/repoboard/internal/social"
	"github.com/kevinmichaelchen/repoboard/internal/store"
	"github.com/kevinmichaelchen/repoboard/internal/summarizer"
	"github.com/kevinmichaelchen/repoboard/internal/usecase"
)

// scope holds the --languages/--topics/--orgs overrides shared by curate and
// recommend.
type scope struct {
	languages, topics, orgs []string
}

func (s *scope) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&s.languages, "languages", nil, "Languages (overrides the profile)")
	cmd.Flags().StringSliceVar(&s.topics, "topics", nil, "Topics (overrides the profile)")
	cmd.Flags().StringSliceVar(&s.orgs, "orgs", nil, "Organizations (overrides the profile)")
}

func (s *scope) apply(cmd *cobra.Command, p *config.Profile) {
	if cmd.Flags().Changed("languages") {
		p.Languages = s.languages
	}
	if cmd.Flags().Changed("topics") {
		p.Topics = s.topics
	}
	if cmd.Flags().Changed("orgs") {
		p.Organizations = s.orgs
	}
}

func presetFor(flag string, p config.Profile) (ranker.Preset, error) {
	return ranker.ParsePreset(cmp.Or(flag, p.Preset))
}

func thresholds(p config.Profile) ranker.Thresholds {
	t := p.Thresholds
	return ranker.Thresholds{
		RisingVelocity:   t.RisingVelocity,
		GemMaxStars:      t.GemMaxStars,
		GemMinQuality:    t.GemMinQuality,
		RecentWindowDays: t.RecentWindowDays,
		ProductionStars:  t.ProductionStars,
	}
}

func curateCmd() *cobra.Command {
	var (
		sc                                      scope
		limit                                   int
		noTrending, noUpdated, noRising, noGems bool
		heuristic, embed                        bool
		preset                                  string
	)

	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Fetch, label, score and rank repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			p := a.profile
			sc.apply(cmd, &p)
			if cmd.Flags().Changed("limit") {
				p.PerCategoryLimit = limit
			}
			pr, err := presetFor(preset, p)
			if err != nil {
				return err
			}

			gh := github.NewClient(a.cfg.GitHubAPIURL, a.cfg.GitHubToken, a.cfg.HTTPTimeout,
				httpx.WithCache(a.cache, a.cfg.CacheTTL))
			session := github.NewSession(gh, github.WithDelays(a.cfg.PageDelay, a.cfg.CriterionDelay))

			completer, err := a.completer(ctx)
			if err != nil {
				return err
			}
			emb, model := a.embedder()

			deps := pipeline.Deps{
				Store:          a.store,
				Session:        session,
				Details:        gh,
				Awesome:        github.NewAwesomeSource(gh, session),
				Summarizer:     summarizer.New(completer, time.Now),
				Labeler:        labeler.New(completer, time.Now),
				Scorer:         insight.NewScorer(time.Now),
				Embedder:       emb,
				EmbeddingModel: model,
			}
			th := p.Thresholds
			sum, err := pipeline.Curate(ctx, deps, pipeline.Options{
				Plan: github.Plan{
					Languages:        p.Languages,
					Topics:           p.Topics,
					Organizations:    p.Organizations,
					Trending:         p.Trending && !noTrending,
					RecentlyUpdated:  p.RecentlyUpdated && !noUpdated,
					RisingStars:      p.RisingStars && !noRising,
					HiddenGems:       p.HiddenGems && !noGems,
					PerCategoryLimit: p.PerCategoryLimit,
					RisingVelocity:   th.RisingVelocity,
					GemMaxStars:      th.GemMaxStars,
					GemMinQuality:    th.GemMinQuality,
				},
				AwesomeLists: p.AwesomeLists,
				AwesomeLimit: p.PerCategoryLimit,
				UseLLM:       !heuristic && completer != nil,
				Embed:        embed && emb != nil,
				Preset:       pr,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Run %s\n", sum.RunID)
			fmt.Printf("  Fetched:    %d\n", sum.Fetched)
			fmt.Printf("  Ingested:   %d\n", sum.Ingested)
			fmt.Printf("  Summarized: %d\n", sum.Summarized)
			fmt.Printf("  Labeled:    %d\n", sum.Labeled)
			fmt.Printf("  Scored:     %d\n", sum.Scored)
			fmt.Printf("  Embedded:   %d\n", sum.Embedded)
			fmt.Printf("  Ranked:     %d\n", sum.Ranked)
			if sum.Skipped > 0 {
				fmt.Printf("  Skipped:    %d\n", sum.Skipped)
			}
			return nil
		},
	}
	sc.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 50, "Repositories per criterion")
	cmd.Flags().BoolVar(&noTrending, "no-trending", false, "Skip the trending criterion")
	cmd.Flags().BoolVar(&noUpdated, "no-updated", false, "Skip the recently-updated criterion")
	cmd.Flags().BoolVar(&noRising, "no-rising", false, "Skip the rising-stars criterion")
	cmd.Flags().BoolVar(&noGems, "no-gems", false, "Skip the hidden-gems criterion")
	cmd.Flags().BoolVar(&heuristic, "heuristic", false, "Label with heuristics only (no LLM calls)")
	cmd.Flags().BoolVar(&embed, "embed", true, "Store summary embeddings for search")
	cmd.Flags().StringVar(&preset, "preset", "", "Ranking preset: "+presetNames())
	return cmd
}

func presetNames() string {
	var names []string
	for _, p := range ranker.Presets() {
		names = append(names, string(p))
	}
	return strings.Join(names, "|")
}

func signalsCmd() *cobra.Command {
	var (
		limit int
		stale time.Duration
	)

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Refresh social signals for stored repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			agg := social.NewAggregator(a.httpClient(), social.DefaultEndpoints())
			n, err := pipeline.RefreshSignals(ctx, pipeline.Deps{Store: a.store, Social: agg}, pipeline.SignalOptions{
				Limit: limit,
				Stale: stale,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Refreshed social signals for %d repos\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum repos to refresh (0 = all)")
	cmd.Flags().DurationVar(&stale, "stale", 24*time.Hour, "Skip repos refreshed more recently than this")
	return cmd
}

// exportFiles maps each format to the file name used by --format all.
var exportFiles = map[export.Format]string{
	export.FormatJSON:     "recommendations.json",
	export.FormatCSV:      "recommendations.csv",
	export.FormatMarkdown: "recommendations.md",
	export.FormatAwesome:  "awesome.md",
}

func recommendCmd() *cobra.Command {
	var (
		sc          scope
		format, out string
		preset      string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Build recommendation views and export them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			// views are built only for explicitly requested scopes
			var p config.Profile
			sc.apply(cmd, &p)
			pr, err := presetFor(preset, a.profile)
			if err != nil {
				return err
			}

			recs, err := pipeline.Recommend(ctx, pipeline.Deps{Store: a.store}, pipeline.RecommendOptions{
				Preset:        pr,
				Limit:         limit,
				Thresholds:    thresholds(a.profile),
				Languages:     p.Languages,
				Topics:        p.Topics,
				Organizations: p.Organizations,
			})
			if err != nil {
				return err
			}
			secs := recs.Sections()
			now := time.Now()

			if format == "all" {
				dir := cmp.Or(out, ".")
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
				for _, f := range export.Formats {
					path := filepath.Join(dir, exportFiles[f])
					if err := writeFile(path, func(w io.Writer) error { return export.Write(w, f, secs, now) }); err != nil {
						return err
					}
					logging.FromContext(ctx).Info("exported", "format", f, "path", path)
				}
				return nil
			}

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if out == "" {
				return export.Write(os.Stdout, f, secs, now)
			}
			return writeFile(out, func(w io.Writer) error { return export.Write(w, f, secs, now) })
		},
	}
	sc.register(cmd)
	cmd.Flags().StringVar(&format, "format", "md", "Output format: json|csv|md|awesome|all")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (directory for --format all); stdout when empty")
	cmd.Flags().StringVar(&preset, "preset", "", "Ranking preset: "+presetNames())
	cmd.Flags().IntVar(&limit, "limit", 10, "Recommendations per view")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Manage curated boards",
	}
	cmd.AddCommand(boardCreateCmd(), boardAddCmd(), boardListCmd(), boardExportCmd())
	return cmd
}

func boardCreateCmd() *cobra.Command {
	var category, description string

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			b := models.Board{Name: args[0], Category: category, Description: description}
			if err := a.store.CreateBoard(cmd.Context(), &b); err != nil {
				return err
			}
			fmt.Printf("Created board %q (id %d)\n", b.Name, b.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "Other", "Board category")
	cmd.Flags().StringVar(&description, "description", "", "Board description")
	return cmd
}

func boardAddCmd() *cobra.Command {
	var (
		rank int
		note string
	)

	cmd := &cobra.Command{
		Use:   "add [board] [owner/name or URL]",
		Short: "Add a stored repository to a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := pipeline.AddToBoard(cmd.Context(), a.store, args[0], args[1], rank, note)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s to %q at rank %d\n", args[1], args[0], it.Rank)
			return nil
		},
	}
	cmd.Flags().IntVar(&rank, "rank", 0, "Position on the board (0 = append)")
	cmd.Flags().StringVar(&note, "note", "", "Curator note")
	return cmd
}

func boardListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := pipeline.BoardDocs(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("No boards")
				return nil
			}
			for _, d := range docs {
				fmt.Printf("  %-30s %-20s %d repos\n", d.Board.Name, d.Board.Category, len(d.Items))
			}
			return nil
		},
	}
}

func boardExportCmd() *cobra.Command {
	var (
		dir      string
		combined bool
	)

	cmd := &cobra.Command{
		Use:   "export [board...]",
		Short: "Export boards as awesome-list markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := pipeline.BoardDocs(ctx, a.store, args...)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			now := time.Now()

			for _, d := range docs {
				path := filepath.Join(dir, export.Slug(d.Board.Name)+".md")
				if err := writeFile(path, func(w io.Writer) error { return export.Board(w, d, now) }); err != nil {
					return err
				}
				fmt.Printf("Exported %s -> %s\n", d.Board.Name, path)
			}
			if combined {
				path := filepath.Join(dir, "README.md")
				if err := writeFile(path, func(w io.Writer) error { return export.Combined(w, docs, now) }); err != nil {
					return err
				}
				fmt.Printf("Exported combined list -> %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", "boards", "Output directory")
	cmd.Flags().BoolVar(&combined, "combined", false, "Also write a combined README.md of all exported boards")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		language string
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search [use case]",
		Short: "Find stored repositories for a use case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			completer, err := a.completer(ctx)
			if err != nil {
				return err
			}
			emb, _ := a.embedder()

			res, err := pipeline.Search(ctx, pipeline.Deps{
				Store:  a.store,
				Finder: usecase.NewFinder(completer, emb),
			}, args[0], usecase.Options{Language: language, Limit: limit})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			if len(res.Recommendations) == 0 {
				fmt.Println(res.Tip)
				return nil
			}
			fmt.Printf("Matches for %q (%s):\n\n", args[0], res.Category)
			for i, m := range res.Recommendations {
				fmt.Printf("%d. %s  (%d)  ★ %d\n", i+1, m.Repo.FullName, m.MatchScore, m.Repo.Stars)
				fmt.Printf("   %s\n", m.Repo.URL)
				fmt.Printf("   %s\n", m.Reason)
				if len(m.Pros) > 0 {
					fmt.Printf("   Pros: %s\n", strings.Join(m.Pros, ", "))
				}
				if len(m.Cons) > 0 {
					fmt.Printf("   Cons: %s\n", strings.Join(m.Cons, ", "))
				}
				fmt.Println()
			}
			if len(res.Stack) > 0 {
				fmt.Printf("Suggested stack: %s\n", strings.Join(res.Stack, ", "))
			}
			if res.Tip != "" {
				fmt.Printf("Tip: %s\n", res.Tip)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Only consider repositories using this language")
	cmd.Flags().IntVarP(&limit, "k", "k", 10, "Number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON")
	return cmd
}

func statsCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts, category breakdown and top curation scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return printStats(cmd.Context(), cmd.OutOrStdout(), a.store, top)
		},
	}
	cmd.Flags().IntVar(&top, "top", 5, "Number of top curation scores to show")
	return cmd
}

func printStats(ctx context.Context, w io.Writer, s store.Store, top int) error {
	st, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Repos:     %d\n", st.Repos)
	fmt.Fprintf(w, "Summaries: %d\n", st.Summaries)
	fmt.Fprintf(w, "Labels:    %d\n", st.Labels)
	fmt.Fprintf(w, "Insights:  %d\n", st.Insights)
	fmt.Fprintf(w, "Signals:   %d\n", st.Signals)
	fmt.Fprintf(w, "Scores:    %d\n", st.Scores)
	fmt.Fprintf(w, "Boards:    %d\n", st.Boards)

	if len(st.Categories) > 0 {
		type row struct {
			name string
			n    int64
		}
		var rows []row
		for k, v := range st.Categories {
			rows = append(rows, row{k, v})
		}
		slices.SortFunc(rows, func(a, b row) int {
			return cmp.Or(cmp.Compare(b.n, a.n), cmp.Compare(a.name, b.name))
		})
		fmt.Fprintln(w, "\nCategory breakdown:")
		for _, r := range rows {
			fmt.Fprintf(w, "  %-20s %d\n", r.name, r.n)
		}
	}

	if top <= 0 {
		return nil
	}
	scores, err := s.ListScores(ctx)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nTop curation scores:")
	for _, sc := range scores[:min(top, len(scores))] {
		name := fmt.Sprintf("repo #%d", sc.RepoID)
		if r, err := s.GetRepo(ctx, sc.RepoID); err == nil {
			name = r.FullName
		}
		fmt.Fprintf(w, "  %-40s %.3f  (%s, run %s)\n", name, sc.Total, sc.Preset, sc.RunID)
	}
	return nil
}
