package github

import (
	"context"
	"sort"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/logging"
)

// Searcher is the slice of Client a Session needs.
type Searcher interface {
	Search(ctx context.Context, query, sort string, page int) ([]SearchItem, error)
}

// Session scopes one curation run. It owns the seen-URL set, so a repository
// surfacing under several criteria is yielded once per session. A Session is
// not safe for concurrent use.
type Session struct {
	src            Searcher
	seen           map[string]struct{}
	stats          map[string]int
	pageDelay      time.Duration
	criterionDelay time.Duration
	now            func() time.Time
	sleep          func(context.Context, time.Duration)
}

type SessionOption func(*Session)

// WithDelays sets the pause between pages and between criteria.
func WithDelays(page, criterion time.Duration) SessionOption {
	return func(s *Session) {
		s.pageDelay = page
		s.criterionDelay = criterion
	}
}

// WithClock overrides the session's notion of now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(src Searcher, opts ...SessionOption) *Session {
	s := &Session{
		src:            src,
		seen:           make(map[string]struct{}),
		stats:          make(map[string]int),
		pageDelay:      500 * time.Millisecond,
		criterionDelay: time.Second,
		now:            time.Now,
		sleep:          sleepCtx,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Seen reports whether url was already yielded in this session.
func (s *Session) Seen(url string) bool {
	_, ok := s.seen[url]
	return ok
}

// MarkSeen records url as yielded.
func (s *Session) MarkSeen(url string) { s.seen[url] = struct{}{} }

// Stats returns how many items each criterion yielded, keyed by criterion name.
func (s *Session) Stats() map[string]int {
	out := make(map[string]int, len(s.stats))
	for k, v := range s.stats {
		out[k] = v
	}
	return out
}

// Fetch runs one criterion and returns at most c.Limit unseen items in
// upstream order. Any page failure ends the criterion; items from earlier
// pages are kept.
func (s *Session) Fetch(ctx context.Context, c Criterion) []SearchItem {
	items := s.collect(ctx, c, nil, true)
	s.stats[c.Name] += len(items)
	logging.FromContext(ctx).Info("fetched", "criterion", c.Name, "count", len(items))
	return items
}

// collect paginates c. keep filters candidates; when mark is false, items
// are deduplicated locally but not recorded in the session.
func (s *Session) collect(ctx context.Context, c Criterion, keep func(SearchItem) bool, mark bool) []SearchItem {
	logger := logging.FromContext(ctx)
	local := make(map[string]struct{})
	var out []SearchItem

	for page := 1; page <= c.pages(); page++ {
		items, err := s.src.Search(ctx, c.Query, c.Sort, page)
		if err != nil {
			logger.Warn("page failed, ending criterion", "criterion", c.Name, "page", page, "err", err)
			break
		}
		if len(items) == 0 {
			break
		}

		for _, it := range items {
			if it.HTMLURL == "" || s.Seen(it.HTMLURL) {
				continue
			}
			if _, dup := local[it.HTMLURL]; dup {
				continue
			}
			if keep != nil && !keep(it) {
				continue
			}
			local[it.HTMLURL] = struct{}{}
			out = append(out, it)
			if mark {
				s.MarkSeen(it.HTMLURL)
			}
			if c.MaxPages == 0 && len(out) >= c.Limit {
				break
			}
		}

		if c.MaxPages == 0 && len(out) >= c.Limit {
			break
		}
		s.sleep(ctx, s.pageDelay)
	}

	if c.MaxPages == 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out
}

// RisingStars scans repositories created in the last 30 days with at least
// 10 stars (up to 500), keeps those whose star velocity reaches minVelocity,
// and returns up to limit sorted by velocity descending.
func (s *Session) RisingStars(ctx context.Context, minVelocity float64, limit int) []SearchItem {
	now := s.now()
	pool := s.collect(ctx, Trending(now, 30, 10, 500), nil, false)

	var rising []SearchItem
	for _, it := range pool {
		if it.Velocity(now) >= minVelocity {
			rising = append(rising, it)
		}
	}
	sort.SliceStable(rising, func(i, j int) bool {
		return rising[i].Velocity(now) > rising[j].Velocity(now)
	})
	if len(rising) > limit {
		rising = rising[:limit]
	}
	for _, it := range rising {
		s.MarkSeen(it.HTMLURL)
	}

	s.stats["rising_stars"] += len(rising)
	logging.FromContext(ctx).Info("fetched", "criterion", "rising_stars", "pool", len(pool), "count", len(rising))
	return rising
}

// HiddenGems scans the 10..maxStars band pushed within the last year and
// keeps items whose five-factor quality reaches minQuality. Results are
// sorted by stars descending and capped at limit.
func (s *Session) HiddenGems(ctx context.Context, maxStars int, minQuality float64, limit int) []SearchItem {
	gems := s.collect(ctx, gemPool(s.now(), maxStars, limit), func(it SearchItem) bool {
		return it.Quality() >= minQuality
	}, false)

	sort.SliceStable(gems, func(i, j int) bool { return gems[i].Stars > gems[j].Stars })
	if len(gems) > limit {
		gems = gems[:limit]
	}
	for _, it := range gems {
		s.MarkSeen(it.HTMLURL)
	}

	s.stats["hidden_gems"] += len(gems)
	logging.FromContext(ctx).Info("fetched", "criterion", "hidden_gems", "count", len(gems))
	return gems
}

// Plan selects the criteria of a comprehensive fetch.
type Plan struct {
	Languages        []string
	Topics           []string
	Organizations    []string
	Trending         bool
	RecentlyUpdated  bool
	RisingStars      bool
	HiddenGems       bool
	PerCategoryLimit int
	RisingVelocity   float64
	GemMaxStars      int
	GemMinQuality    float64
}

// Comprehensive runs languages, topics, organizations, trending, recently
// updated, rising stars and hidden gems in sequence and returns the union
// deduplicated by URL.
func (s *Session) Comprehensive(ctx context.Context, p Plan) []SearchItem {
	now := s.now()
	limit := p.PerCategoryLimit
	var all []SearchItem

	for _, lang := range p.Languages {
		all = append(all, s.Fetch(ctx, ByLanguage(lang, LanguageMinStars, limit))...)
		s.sleep(ctx, s.criterionDelay)
	}
	for _, topic := range p.Topics {
		all = append(all, s.Fetch(ctx, ByTopic(topic, TopicMinStars, limit))...)
		s.sleep(ctx, s.criterionDelay)
	}
	for _, org := range p.Organizations {
		all = append(all, s.Fetch(ctx, ByOrganization(org, OrganizationMinStars, limit))...)
		s.sleep(ctx, s.criterionDelay)
	}
	if p.Trending {
		all = append(all, s.Fetch(ctx, Trending(now, 7, TrendingMinStars, limit*2))...)
	}
	if p.RecentlyUpdated {
		all = append(all, s.Fetch(ctx, RecentlyUpdated(now, 30, UpdatedMinStars, limit*2))...)
	}
	if p.RisingStars {
		all = append(all, s.RisingStars(ctx, p.RisingVelocity, limit)...)
	}
	if p.HiddenGems {
		all = append(all, s.HiddenGems(ctx, p.GemMaxStars, p.GemMinQuality, limit)...)
	}

	return Dedupe(all)
}

// Dedupe keeps the first item per URL, preserving order.
func Dedupe(items []SearchItem) []SearchItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]SearchItem, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.HTMLURL]; ok {
			continue
		}
		seen[it.HTMLURL] = struct{}{}
		out = append(out, it)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
