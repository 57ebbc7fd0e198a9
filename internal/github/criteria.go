package github

import (
	"fmt"
	"time"
)

// Criterion is one selection rule for the repository search endpoint.
//
// Limit caps how many unseen items the criterion yields. MaxPages bounds
// pagination; zero means Limit/PerPage+1 pages.
type Criterion struct {
	Name     string
	Query    string
	Sort     string
	Limit    int
	MaxPages int
}

func (c Criterion) pages() int {
	if c.MaxPages > 0 {
		return c.MaxPages
	}
	return c.Limit/PerPage + 1
}

// Default star floors per criterion.
const (
	LanguageMinStars     = 100
	TopicMinStars        = 50
	OrganizationMinStars = 100
	TrendingMinStars     = 50
	UpdatedMinStars      = 100
)

func ByLanguage(lang string, minStars, limit int) Criterion {
	return Criterion{
		Name:  "language_" + lang,
		Query: fmt.Sprintf("language:%s stars:>=%d", lang, minStars),
		Sort:  "stars",
		Limit: limit,
	}
}

func ByTopic(topic string, minStars, limit int) Criterion {
	return Criterion{
		Name:  "topic_" + topic,
		Query: fmt.Sprintf("topic:%s stars:>=%d", topic, minStars),
		Sort:  "stars",
		Limit: limit,
	}
}

func ByOrganization(org string, minStars, limit int) Criterion {
	return Criterion{
		Name:  "org_" + org,
		Query: fmt.Sprintf("org:%s stars:>=%d", org, minStars),
		Sort:  "stars",
		Limit: limit,
	}
}

// Trending selects repositories created within the last days.
func Trending(now time.Time, days, minStars, limit int) Criterion {
	return Criterion{
		Name:  "trending",
		Query: fmt.Sprintf("created:>=%s stars:>=%d", since(now, days), minStars),
		Sort:  "stars",
		Limit: limit,
	}
}

// RecentlyUpdated selects repositories pushed within the last days.
func RecentlyUpdated(now time.Time, days, minStars, limit int) Criterion {
	return Criterion{
		Name:  "recently_updated",
		Query: fmt.Sprintf("pushed:>=%s stars:>=%d", since(now, days), minStars),
		Sort:  "updated",
		Limit: limit,
	}
}

// gemPool is the low-star band scanned for hidden gems: pushed within the
// last year, at most five pages.
func gemPool(now time.Time, maxStars, limit int) Criterion {
	return Criterion{
		Name:     "hidden_gems",
		Query:    fmt.Sprintf("stars:10..%d pushed:>%s", maxStars, since(now, 365)),
		Sort:     "updated",
		Limit:    limit,
		MaxPages: 5,
	}
}

func since(now time.Time, days int) string {
	return now.AddDate(0, 0, -days).Format("2006-01-02")
}
