package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// GormStore is the relational backend, shared by Postgres and SQLite.
type GormStore struct {
	db *gorm.DB
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger: gormlogger.New(
			log.Default().With("component", "gorm"),
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}

// OpenSQLite opens the database file at path. ":memory:" gives a private
// in-memory database.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return newGormStore(db)
}

func OpenPostgres(dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres store")
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return newGormStore(db)
}

func newGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(
		&models.Repo{},
		&models.Summary{},
		&models.Label{},
		&models.Insight{},
		&models.SocialSignals{},
		&models.CurationScore{},
		&models.Board{},
		&models.BoardItem{},
		&models.Embedding{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// upsertOnRepo inserts v or overwrites the row that already exists for the
// same repository.
func upsertOnRepo(ctx context.Context, db *gorm.DB, v any) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo_id"}},
		UpdateAll: true,
	}).Create(v).Error
}

func (s *GormStore) UpsertRepo(ctx context.Context, r *models.Repo) error {
	if r.URL == "" {
		return errors.New("repo URL is required")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Repo
		err := tx.Select("id").Where("url = ?", r.URL).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			r.ID = 0
			return tx.Create(r).Error
		case err != nil:
			return err
		}
		r.ID = existing.ID
		return tx.Save(r).Error
	})
	if err != nil {
		return fmt.Errorf("upserting %s: %w", r.URL, err)
	}
	return nil
}

func (s *GormStore) GetRepo(ctx context.Context, id uint) (models.Repo, error) {
	var r models.Repo
	err := s.db.WithContext(ctx).Take(&r, id).Error
	return r, notFound(err)
}

func (s *GormStore) FindRepo(ctx context.Context, ref string) (models.Repo, error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")
	var r models.Repo
	err := s.db.WithContext(ctx).
		Where("url = ? OR LOWER(full_name) = ?", ref, strings.ToLower(ref)).
		Take(&r).Error
	return r, notFound(err)
}

func (s *GormStore) ListRepos(ctx context.Context, limit int) ([]models.Repo, error) {
	var out []models.Repo
	q := s.db.WithContext(ctx).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	return out, nil
}

func (s *GormStore) SaveSummary(ctx context.Context, sum *models.Summary) error {
	return upsertOnRepo(ctx, s.db, sum)
}

func (s *GormStore) GetSummary(ctx context.Context, repoID uint) (models.Summary, error) {
	var out models.Summary
	err := s.db.WithContext(ctx).Where("repo_id = ?", repoID).Take(&out).Error
	return out, notFound(err)
}

func (s *GormStore) ReplaceLabels(ctx context.Context, repoID uint, labels []models.Label) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("repo_id = ?", repoID).Delete(&models.Label{}).Error; err != nil {
			return fmt.Errorf("clearing labels: %w", err)
		}
		if len(labels) == 0 {
			return nil
		}
		for i := range labels {
			labels[i].ID = 0
			labels[i].RepoID = repoID
		}
		return tx.Create(&labels).Error
	})
}

func (s *GormStore) ListLabels(ctx context.Context, repoID uint) ([]models.Label, error) {
	var out []models.Label
	err := s.db.WithContext(ctx).Where("repo_id = ?", repoID).Order("id").Find(&out).Error
	return out, err
}

func (s *GormStore) SaveInsight(ctx context.Context, in *models.Insight) error {
	return upsertOnRepo(ctx, s.db, in)
}

func (s *GormStore) GetInsight(ctx context.Context, repoID uint) (models.Insight, error) {
	var out models.Insight
	err := s.db.WithContext(ctx).Where("repo_id = ?", repoID).Take(&out).Error
	return out, notFound(err)
}

func (s *GormStore) SaveSocialSignals(ctx context.Context, sig *models.SocialSignals) error {
	return upsertOnRepo(ctx, s.db, sig)
}

func (s *GormStore) GetSocialSignals(ctx context.Context, repoID uint) (models.SocialSignals, error) {
	var out models.SocialSignals
	err := s.db.WithContext(ctx).Where("repo_id = ?", repoID).Take(&out).Error
	return out, notFound(err)
}

func (s *GormStore) SaveScore(ctx context.Context, sc *models.CurationScore) error {
	return upsertOnRepo(ctx, s.db, sc)
}

func (s *GormStore) ListScores(ctx context.Context) ([]models.CurationScore, error) {
	var out []models.CurationScore
	err := s.db.WithContext(ctx).Order("total DESC").Order("repo_id").Find(&out).Error
	return out, err
}

func (s *GormStore) CreateBoard(ctx context.Context, b *models.Board) error {
	err := s.db.WithContext(ctx).Create(b).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("board %q already exists", b.Name)
	}
	return err
}

func (s *GormStore) GetBoard(ctx context.Context, name string) (models.Board, error) {
	var b models.Board
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&b).Error
	return b, notFound(err)
}

func (s *GormStore) ListBoards(ctx context.Context) ([]models.Board, error) {
	var out []models.Board
	err := s.db.WithContext(ctx).Order("category").Order("name").Find(&out).Error
	return out, err
}

func (s *GormStore) AddBoardItem(ctx context.Context, it *models.BoardItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if it.Rank == 0 {
			var maxRank int
			if err := tx.Model(&models.BoardItem{}).
				Where("board_id = ?", it.BoardID).
				Select("COALESCE(MAX(rank), 0)").
				Scan(&maxRank).Error; err != nil {
				return err
			}
			it.Rank = maxRank + 1
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "board_id"}, {Name: "repo_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rank", "note"}),
		}).Create(it).Error
	})
}

func (s *GormStore) ListBoardItems(ctx context.Context, boardID uint) ([]models.BoardItem, error) {
	var out []models.BoardItem
	err := s.db.WithContext(ctx).Where("board_id = ?", boardID).Order("rank").Order("id").Find(&out).Error
	return out, err
}

func (s *GormStore) SaveEmbedding(ctx context.Context, e *models.Embedding) error {
	return upsertOnRepo(ctx, s.db, e)
}

func (s *GormStore) ListEmbeddings(ctx context.Context) ([]models.Embedding, error) {
	var out []models.Embedding
	err := s.db.WithContext(ctx).Order("repo_id").Find(&out).Error
	return out, err
}

func (s *GormStore) Stats(ctx context.Context) (models.Stats, error) {
	db := s.db.WithContext(ctx)
	st := models.Stats{Categories: map[string]int64{}}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.Repo{}, &st.Repos},
		{&models.Summary{}, &st.Summaries},
		{&models.Label{}, &st.Labels},
		{&models.Insight{}, &st.Insights},
		{&models.SocialSignals{}, &st.Signals},
		{&models.CurationScore{}, &st.Scores},
		{&models.Board{}, &st.Boards},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return st, fmt.Errorf("counting: %w", err)
		}
	}

	var rows []struct {
		Value string
		N     int64
	}
	if err := db.Model(&models.Label{}).
		Select("value, COUNT(DISTINCT repo_id) AS n").
		Where("type = ?", models.LabelCategory).
		Group("value").
		Scan(&rows).Error; err != nil {
		return st, fmt.Errorf("counting categories: %w", err)
	}
	for _, r := range rows {
		st.Categories[r.Value] = r.N
	}
	return st, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
