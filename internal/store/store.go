// Package store persists repositories and everything derived from them.
//
// Repositories are keyed by URL; every other record references a repository
// by its surrogate ID. Each write commits on its own, so an interrupted run
// keeps whatever it already saved.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevinmichaelchen/repoboard/internal/config"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

var ErrNotFound = errors.New("store: not found")

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*SurrealStore)(nil)
)

type Store interface {
	// UpsertRepo inserts or updates r by URL and sets r.ID.
	UpsertRepo(ctx context.Context, r *models.Repo) error
	GetRepo(ctx context.Context, id uint) (models.Repo, error)
	// FindRepo looks a repository up by URL or owner/name.
	FindRepo(ctx context.Context, ref string) (models.Repo, error)
	// ListRepos returns repositories by ID; limit <= 0 means all.
	ListRepos(ctx context.Context, limit int) ([]models.Repo, error)

	SaveSummary(ctx context.Context, s *models.Summary) error
	GetSummary(ctx context.Context, repoID uint) (models.Summary, error)

	// ReplaceLabels swaps a repository's label set in one transaction.
	ReplaceLabels(ctx context.Context, repoID uint, labels []models.Label) error
	ListLabels(ctx context.Context, repoID uint) ([]models.Label, error)

	SaveInsight(ctx context.Context, in *models.Insight) error
	GetInsight(ctx context.Context, repoID uint) (models.Insight, error)

	SaveSocialSignals(ctx context.Context, s *models.SocialSignals) error
	GetSocialSignals(ctx context.Context, repoID uint) (models.SocialSignals, error)

	SaveScore(ctx context.Context, s *models.CurationScore) error
	// ListScores returns scores ordered by total, highest first.
	ListScores(ctx context.Context) ([]models.CurationScore, error)

	CreateBoard(ctx context.Context, b *models.Board) error
	GetBoard(ctx context.Context, name string) (models.Board, error)
	ListBoards(ctx context.Context) ([]models.Board, error)
	// AddBoardItem places a repository on a board. A zero Rank appends it.
	AddBoardItem(ctx context.Context, it *models.BoardItem) error
	// ListBoardItems returns a board's items in rank order.
	ListBoardItems(ctx context.Context, boardID uint) ([]models.BoardItem, error)

	SaveEmbedding(ctx context.Context, e *models.Embedding) error
	ListEmbeddings(ctx context.Context) ([]models.Embedding, error)

	Stats(ctx context.Context) (models.Stats, error)
	Close() error
}

// Open connects to the backend named by cfg.StoreDriver and prepares its
// schema.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(cfg.DatabaseURL)
	case "surrealdb":
		return OpenSurreal(ctx, SurrealConfig{
			URL:       cfg.SurrealURL,
			Namespace: cfg.SurrealNS,
			Database:  cfg.SurrealDB,
			User:      cfg.SurrealUser,
			Pass:      cfg.SurrealPass,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
