// Package export renders recommendations and boards as JSON, CSV and
// Markdown.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kevinmichaelchen/repoboard/internal/ranker"
)

// Format is an output format name.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatAwesome  Format = "awesome"
)

// Formats lists every format in the order "all" writes them.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatAwesome}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Section is one named view of recommendations.
type Section struct {
	Key   string
	Items []ranker.Recommendation
}

// Title is the section heading: "top_overall" becomes "Top Overall".
func (s Section) Title() string { return titleCase(s.Key) }

var (
	printer = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

func titleCase(key string) string {
	return titler.String(strings.ReplaceAll(key, "_", " "))
}

// Sections orders views: keys named in order come first, the rest follow
// alphabetically.
func Sections(views map[string][]ranker.Recommendation, order []string) []Section {
	out := make([]Section, 0, len(views))
	seen := make(map[string]bool, len(views))
	for _, k := range order {
		if items, ok := views[k]; ok && !seen[k] {
			out = append(out, Section{Key: k, Items: items})
			seen[k] = true
		}
	}
	var rest []string
	for k := range views {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		out = append(out, Section{Key: k, Items: views[k]})
	}
	return out
}

// Write renders secs in format f.
func Write(w io.Writer, f Format, secs []Section, now time.Time) error {
	switch f {
	case FormatJSON:
		return JSON(w, secs)
	case FormatCSV:
		return CSV(w, secs)
	case FormatMarkdown:
		return Markdown(w, secs, now)
	case FormatAwesome:
		return Awesome(w, secs, now)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// JSON writes every recommendation keyed by section.
func JSON(w io.Writer, secs []Section) error {
	doc := make(map[string][]ranker.Recommendation, len(secs))
	for _, s := range secs {
		doc[s.Key] = s.Items
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding recommendations: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"category", "rank", "name", "url", "description", "stars", "forks",
	"language", "topics", "score", "star_velocity", "why_recommended",
}

// CSV writes one row per recommendation. Nothing is written when there are
// no recommendations at all.
func CSV(w io.Writer, secs []Section) error {
	var rows [][]string
	for _, s := range secs {
		for _, r := range s.Items {
			rows = append(rows, []string{
				s.Key,
				strconv.Itoa(r.Rank),
				r.Name,
				r.URL,
				r.Description,
				strconv.Itoa(r.Stars),
				strconv.Itoa(r.Forks),
				r.Language,
				strings.Join(r.Topics, ", "),
				strconv.FormatFloat(r.Score, 'f', -1, 64),
				strconv.FormatFloat(r.StarVelocity, 'f', -1, 64),
				r.Why,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// Markdown writes a human-readable report.
func Markdown(w io.Writer, secs []Section, now time.Time) error {
	var b strings.Builder
	b.WriteString("# Repository Recommendations\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n---\n\n", now.Format(time.DateTime))

	for _, s := range secs {
		fmt.Fprintf(&b, "## %s\n\n", s.Title())
		for _, r := range s.Items {
			fmt.Fprintf(&b, "### %d. %s\n\n", r.Rank, r.Name)
			b.WriteString(printer.Sprintf("- **Stars**: %d | **Forks**: %d", r.Stars, r.Forks))
			if r.Language != "" {
				fmt.Fprintf(&b, " | **Language**: %s", r.Language)
			}
			b.WriteString("\n")
			fmt.Fprintf(&b, "- **URL**: %s\n", r.URL)
			fmt.Fprintf(&b, "- **Description**: %s\n", r.Description)
			if len(r.Topics) > 0 {
				fmt.Fprintf(&b, "- **Topics**: %s\n", strings.Join(r.Topics, ", "))
			}
			why := r.Why
			if why == "" {
				why = ranker.FallbackReason
			}
			fmt.Fprintf(&b, "- **Why recommended**: %s\n", why)
			fmt.Fprintf(&b, "- **Score**: %.3f\n", r.Score)
			if r.StarVelocity != 0 {
				fmt.Fprintf(&b, "- **Star velocity**: %.1f stars/day\n", r.StarVelocity)
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Awesome writes an awesome-list style Markdown document, one heading per
// section.
func Awesome(w io.Writer, secs []Section, now time.Time) error {
	var b strings.Builder
	b.WriteString("# Awesome Curated Repositories\n\n")
	fmt.Fprintf(&b, "*Auto-curated recommendations - Last updated: %s*\n\n", now.Format(time.DateOnly))
	b.WriteString("A curated list of recommended GitHub repositories.\n\n---\n\n")

	for _, s := range secs {
		fmt.Fprintf(&b, "## %s\n\n", s.Title())
		for _, r := range s.Items {
			fmt.Fprintf(&b, "- [%s](%s)", r.Name, r.URL)
			if r.Description != "" {
				fmt.Fprintf(&b, " - %s", r.Description)
			}
			b.WriteString(printer.Sprintf(" ⭐ %d", r.Stars))
			if r.Language != "" {
				fmt.Fprintf(&b, " | %s", r.Language)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
