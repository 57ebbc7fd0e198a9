package export

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// BoardEntry is one repository on a board with its optional summary.
type BoardEntry struct {
	Repo    models.Repo
	Summary *models.Summary
}

// BoardDoc is a board with its items in rank order.
type BoardDoc struct {
	Board models.Board
	Items []BoardEntry
}

// combinedLimit caps how many items of each board the combined list shows.
const combinedLimit = 10

// Slug turns a board name into a file name stem.
func Slug(name string) string {
	s := strings.NewReplacer(" ", "-", "/", "-").Replace(strings.ToLower(name))
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// topLanguage is the language with the most bytes, ties going to the
// alphabetically first, falling back to the primary language.
func topLanguage(r models.Repo) string {
	best, n := "", -1
	for lang, size := range r.Languages {
		if size > n || (size == n && lang < best) {
			best, n = lang, size
		}
	}
	if best == "" {
		return r.Language
	}
	return best
}

// Board writes one board as an awesome-style list.
func Board(w io.Writer, doc BoardDoc, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Board.Name)
	fmt.Fprintf(&b, "%s\n\n", doc.Board.Description)
	fmt.Fprintf(&b, "*Auto-curated by RepoBoard - Last updated: %s*\n\n---\n\n", now.Format(time.DateOnly))

	for _, it := range doc.Items {
		r := it.Repo
		fmt.Fprintf(&b, "- [%s](%s)", r.FullName, r.URL)
		switch {
		case it.Summary != nil:
			fmt.Fprintf(&b, " - %s", truncate(it.Summary.Synopsis, 100))
			if tags := it.Summary.Tags[:min(3, len(it.Summary.Tags))]; len(tags) > 0 {
				fmt.Fprintf(&b, " `%s`", strings.Join(tags, ", "))
			}
		case r.Description != "":
			fmt.Fprintf(&b, " - %s", truncate(r.Description, 100))
		}
		fmt.Fprintf(&b, " ⭐ %d", r.Stars)
		if lang := topLanguage(r); lang != "" {
			fmt.Fprintf(&b, " | %s", lang)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Combined writes every board in one document, grouped by board category
// and showing at most ten items per board.
func Combined(w io.Writer, docs []BoardDoc, now time.Time) error {
	sorted := slices.Clone(docs)
	slices.SortStableFunc(sorted, func(a, b BoardDoc) int {
		if c := cmp.Compare(a.Board.Category, b.Board.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.Board.Name, b.Board.Name)
	})

	var b strings.Builder
	b.WriteString("# Awesome Curated Repositories\n\n")
	fmt.Fprintf(&b, "*Auto-curated by RepoBoard - Last updated: %s*\n\n", now.Format(time.DateOnly))
	b.WriteString("This is an automatically curated list of GitHub repositories organized by topic.\n\n---\n\n")

	current := ""
	for _, doc := range sorted {
		if cat := doc.Board.Category; cat != "" && cat != current {
			if current != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "## %s\n\n", cat)
			current = cat
		}
		fmt.Fprintf(&b, "### %s\n\n", doc.Board.Name)
		fmt.Fprintf(&b, "%s\n\n", doc.Board.Description)

		for _, it := range doc.Items[:min(combinedLimit, len(doc.Items))] {
			r := it.Repo
			fmt.Fprintf(&b, "- [%s](%s)", r.FullName, r.URL)
			switch {
			case it.Summary != nil:
				fmt.Fprintf(&b, " - %s", truncate(it.Summary.Synopsis, 80))
			case r.Description != "":
				fmt.Fprintf(&b, " - %s", truncate(r.Description, 80))
			}
			fmt.Fprintf(&b, " ⭐ %d\n", r.Stars)
		}
		if extra := len(doc.Items) - combinedLimit; extra > 0 {
			fmt.Fprintf(&b, "\n*... and %d more repositories*\n", extra)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
