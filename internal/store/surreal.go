package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	sdk "github.com/surrealdb/surrealdb.go"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	User      string
	Pass      string
}

// SurrealStore keeps each entity as a JSON document beside the fields it is
// looked up or ordered by. Record keys are the numeric IDs the rest of the
// program uses.
type SurrealStore struct {
	db *sdk.DB
}

func OpenSurreal(ctx context.Context, cfg SurrealConfig) (*SurrealStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("SURREAL_URL is required for the surrealdb store")
	}
	db, err := sdk.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, sdk.Auth{
		Namespace: cfg.Namespace,
		Database:  cfg.Database,
		Username:  cfg.User,
		Password:  cfg.Pass,
	}); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("signing in: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("selecting ns/db: %w", err)
	}

	s := &SurrealStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *SurrealStore) initSchema(ctx context.Context) error {
	schema := `
DEFINE TABLE IF NOT EXISTS repo SCHEMALESS;
DEFINE INDEX IF NOT EXISTS idx_repo_url ON TABLE repo FIELDS url UNIQUE;
DEFINE INDEX IF NOT EXISTS idx_repo_full_name ON TABLE repo FIELDS full_name;

DEFINE TABLE IF NOT EXISTS summary SCHEMALESS;
DEFINE TABLE IF NOT EXISTS labels SCHEMALESS;
DEFINE TABLE IF NOT EXISTS insight SCHEMALESS;
DEFINE TABLE IF NOT EXISTS social SCHEMALESS;
DEFINE TABLE IF NOT EXISTS score SCHEMALESS;
DEFINE TABLE IF NOT EXISTS embedding SCHEMALESS;

DEFINE TABLE IF NOT EXISTS board SCHEMALESS;
DEFINE INDEX IF NOT EXISTS idx_board_name ON TABLE board FIELDS name UNIQUE;
DEFINE TABLE IF NOT EXISTS board_item SCHEMALESS;
DEFINE INDEX IF NOT EXISTS idx_board_item_board ON TABLE board_item FIELDS board_id;

DEFINE TABLE IF NOT EXISTS seq SCHEMALESS;
`
	if _, err := sdk.Query[any](ctx, s.db, schema, nil); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

type docRow struct {
	Doc string `json:"doc"`
}

// query runs sql and decodes the doc column of every row into a T.
func query[T any](ctx context.Context, db *sdk.DB, sql string, vars map[string]any) ([]T, error) {
	results, err := sdk.Query[[]docRow](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	rows := (*results)[0].Result
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		var v T
		if err := json.Unmarshal([]byte(r.Doc), &v); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, db *sdk.DB, sql string, vars map[string]any) (T, error) {
	var zero T
	rows, err := query[T](ctx, db, sql, vars)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, ErrNotFound
	}
	return rows[0], nil
}

// put replaces table:key with fields plus v encoded as the doc column.
func (s *SurrealStore) put(ctx context.Context, table string, key any, fields map[string]any, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", table, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["doc"] = string(b)
	_, err = sdk.Query[any](ctx, s.db,
		`UPSERT type::thing($tb, $key) CONTENT $data`,
		map[string]any{"tb": table, "key": key, "data": fields})
	if err != nil {
		return fmt.Errorf("writing %s: %w", table, err)
	}
	return nil
}

// nextID hands out increasing IDs per table.
func (s *SurrealStore) nextID(ctx context.Context, table string) (uint, error) {
	results, err := sdk.Query[[]int64](ctx, s.db,
		`UPSERT type::thing("seq", $tb) SET n += 1 RETURN VALUE n`,
		map[string]any{"tb": table})
	if err != nil {
		return 0, fmt.Errorf("allocating %s id: %w", table, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, fmt.Errorf("allocating %s id: empty result", table)
	}
	return uint((*results)[0].Result[0]), nil
}

func (s *SurrealStore) UpsertRepo(ctx context.Context, r *models.Repo) error {
	if r.URL == "" {
		return errors.New("repo URL is required")
	}
	existing, err := s.findBy(ctx, "url", r.URL)
	switch {
	case errors.Is(err, ErrNotFound):
		id, err := s.nextID(ctx, "repo")
		if err != nil {
			return err
		}
		r.ID = id
	case err != nil:
		return fmt.Errorf("upserting %s: %w", r.URL, err)
	default:
		r.ID = existing.ID
	}
	return s.put(ctx, "repo", r.ID, map[string]any{
		"url":       r.URL,
		"full_name": strings.ToLower(r.FullName),
	}, r)
}

func (s *SurrealStore) findBy(ctx context.Context, field, value string) (models.Repo, error) {
	return queryOne[models.Repo](ctx, s.db,
		"SELECT doc FROM repo WHERE "+field+" = $v LIMIT 1",
		map[string]any{"v": value})
}

func (s *SurrealStore) GetRepo(ctx context.Context, id uint) (models.Repo, error) {
	return queryOne[models.Repo](ctx, s.db,
		`SELECT doc FROM type::thing("repo", $id)`, map[string]any{"id": id})
}

func (s *SurrealStore) FindRepo(ctx context.Context, ref string) (models.Repo, error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")
	r, err := s.findBy(ctx, "url", ref)
	if errors.Is(err, ErrNotFound) {
		return s.findBy(ctx, "full_name", strings.ToLower(ref))
	}
	return r, err
}

func (s *SurrealStore) ListRepos(ctx context.Context, limit int) ([]models.Repo, error) {
	sql := `SELECT doc, record::id(id) AS k FROM repo ORDER BY k`
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query[models.Repo](ctx, s.db, sql, nil)
}

// perRepo reads the single table:repoID document.
func perRepo[T any](ctx context.Context, db *sdk.DB, table string, repoID uint) (T, error) {
	return queryOne[T](ctx, db, `SELECT doc FROM type::thing($tb, $id)`,
		map[string]any{"tb": table, "id": repoID})
}

func (s *SurrealStore) SaveSummary(ctx context.Context, sum *models.Summary) error {
	sum.ID = sum.RepoID
	return s.put(ctx, "summary", sum.RepoID, map[string]any{"repo_id": sum.RepoID}, sum)
}

func (s *SurrealStore) GetSummary(ctx context.Context, repoID uint) (models.Summary, error) {
	return perRepo[models.Summary](ctx, s.db, "summary", repoID)
}

// ReplaceLabels stores the whole label set as one document, so the swap is
// a single write.
func (s *SurrealStore) ReplaceLabels(ctx context.Context, repoID uint, labels []models.Label) error {
	set := slices.Clone(labels)
	for i := range set {
		set[i].ID = uint(i + 1)
		set[i].RepoID = repoID
	}
	if set == nil {
		set = []models.Label{}
	}
	return s.put(ctx, "labels", repoID, map[string]any{"repo_id": repoID}, set)
}

func (s *SurrealStore) ListLabels(ctx context.Context, repoID uint) ([]models.Label, error) {
	set, err := perRepo[[]models.Label](ctx, s.db, "labels", repoID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return set, err
}

func (s *SurrealStore) SaveInsight(ctx context.Context, in *models.Insight) error {
	in.ID = in.RepoID
	return s.put(ctx, "insight", in.RepoID, map[string]any{"repo_id": in.RepoID}, in)
}

func (s *SurrealStore) GetInsight(ctx context.Context, repoID uint) (models.Insight, error) {
	return perRepo[models.Insight](ctx, s.db, "insight", repoID)
}

func (s *SurrealStore) SaveSocialSignals(ctx context.Context, sig *models.SocialSignals) error {
	sig.ID = sig.RepoID
	return s.put(ctx, "social", sig.RepoID, map[string]any{"repo_id": sig.RepoID}, sig)
}

func (s *SurrealStore) GetSocialSignals(ctx context.Context, repoID uint) (models.SocialSignals, error) {
	return perRepo[models.SocialSignals](ctx, s.db, "social", repoID)
}

func (s *SurrealStore) SaveScore(ctx context.Context, sc *models.CurationScore) error {
	sc.ID = sc.RepoID
	return s.put(ctx, "score", sc.RepoID, map[string]any{"repo_id": sc.RepoID, "total": sc.Total}, sc)
}

func (s *SurrealStore) ListScores(ctx context.Context) ([]models.CurationScore, error) {
	return query[models.CurationScore](ctx, s.db,
		`SELECT doc, total, repo_id FROM score ORDER BY total DESC, repo_id ASC`, nil)
}

func (s *SurrealStore) CreateBoard(ctx context.Context, b *models.Board) error {
	if _, err := s.GetBoard(ctx, b.Name); err == nil {
		return fmt.Errorf("board %q already exists", b.Name)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	id, err := s.nextID(ctx, "board")
	if err != nil {
		return err
	}
	b.ID = id
	return s.put(ctx, "board", id, map[string]any{"name": b.Name, "category": b.Category}, b)
}

func (s *SurrealStore) GetBoard(ctx context.Context, name string) (models.Board, error) {
	return queryOne[models.Board](ctx, s.db,
		`SELECT doc FROM board WHERE name = $name LIMIT 1`, map[string]any{"name": name})
}

func (s *SurrealStore) ListBoards(ctx context.Context) ([]models.Board, error) {
	return query[models.Board](ctx, s.db,
		`SELECT doc, category, name FROM board ORDER BY category, name`, nil)
}

func (s *SurrealStore) AddBoardItem(ctx context.Context, it *models.BoardItem) error {
	if it.Rank == 0 {
		items, err := s.ListBoardItems(ctx, it.BoardID)
		if err != nil {
			return err
		}
		for _, existing := range items {
			it.Rank = max(it.Rank, existing.Rank)
		}
		it.Rank++
	}
	key := []any{it.BoardID, it.RepoID}
	return s.put(ctx, "board_item", key, map[string]any{
		"board_id": it.BoardID,
		"repo_id":  it.RepoID,
		"rank":     it.Rank,
	}, it)
}

func (s *SurrealStore) ListBoardItems(ctx context.Context, boardID uint) ([]models.BoardItem, error) {
	return query[models.BoardItem](ctx, s.db,
		`SELECT doc, rank FROM board_item WHERE board_id = $b ORDER BY rank`,
		map[string]any{"b": boardID})
}

func (s *SurrealStore) SaveEmbedding(ctx context.Context, e *models.Embedding) error {
	e.ID = e.RepoID
	return s.put(ctx, "embedding", e.RepoID, map[string]any{"repo_id": e.RepoID}, e)
}

func (s *SurrealStore) ListEmbeddings(ctx context.Context) ([]models.Embedding, error) {
	return query[models.Embedding](ctx, s.db,
		`SELECT doc, repo_id FROM embedding ORDER BY repo_id`, nil)
}

func (s *SurrealStore) count(ctx context.Context, table string) (int64, error) {
	results, err := sdk.Query[[]map[string]any](ctx, s.db,
		"SELECT count() AS n FROM "+table+" GROUP ALL", nil)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return toInt64((*results)[0].Result[0]["n"]), nil
}

func (s *SurrealStore) Stats(ctx context.Context) (models.Stats, error) {
	st := models.Stats{Categories: map[string]int64{}}
	counts := []struct {
		table string
		dst   *int64
	}{
		{"repo", &st.Repos},
		{"summary", &st.Summaries},
		{"insight", &st.Insights},
		{"social", &st.Signals},
		{"score", &st.Scores},
		{"board", &st.Boards},
	}
	for _, c := range counts {
		n, err := s.count(ctx, c.table)
		if err != nil {
			return st, err
		}
		*c.dst = n
	}

	// Label sets are documents, so the category breakdown is computed here.
	sets, err := query[[]models.Label](ctx, s.db, `SELECT doc FROM labels`, nil)
	if err != nil {
		return st, fmt.Errorf("getting labels: %w", err)
	}
	for _, set := range sets {
		st.Labels += int64(len(set))
		for cat := range categoriesOf(set) {
			st.Categories[cat]++
		}
	}
	return st, nil
}

// categoriesOf returns the distinct category values of one repository's
// labels.
func categoriesOf(labels []models.Label) map[string]struct{} {
	out := map[string]struct{}{}
	for _, l := range labels {
		if l.Type == models.LabelCategory {
			out[l.Value] = struct{}{}
		}
	}
	return out
}

func (s *SurrealStore) Close() error {
	return s.db.Close(context.Background())
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	default:
		return 0
	}
}
