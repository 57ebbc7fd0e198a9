package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDaysBetweenFloors(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(testNow.Add(-23*time.Hour), testNow))
	assert.Equal(t, 1, DaysBetween(testNow.Add(-25*time.Hour), testNow))
	assert.Equal(t, 30, DaysBetween(testNow.AddDate(0, 0, -30), testNow))
	assert.Equal(t, -1, DaysBetween(testNow.Add(time.Hour), testNow))
}

func TestRepoAges(t *testing.T) {
	var r Repo
	assert.Equal(t, 1, r.AgeDays(testNow))
	assert.Equal(t, -1, r.DaysSincePush(testNow))
	assert.Equal(t, -1, r.DaysSinceUpdate(testNow))
	assert.False(t, r.PushedWithin(testNow, 90))

	r.CreatedAt = testNow.Add(-time.Hour)
	assert.Equal(t, 1, r.AgeDays(testNow), "never below one day")

	r.CreatedAt = testNow.AddDate(0, 0, -400)
	r.PushedAt = testNow.AddDate(0, 0, -89)
	r.UpdatedAt = testNow.AddDate(0, 0, -5)
	assert.Equal(t, 400, r.AgeDays(testNow))
	assert.Equal(t, 5, r.DaysSinceUpdate(testNow))
	assert.True(t, r.PushedWithin(testNow, 90))
	assert.False(t, r.PushedWithin(testNow, 89))
}

func TestStarVelocity(t *testing.T) {
	assert.InDelta(t, 10.0, StarVelocity(100, 10), 1e-9)
	assert.InDelta(t, 100.0, StarVelocity(100, 0), 1e-9)
}

func TestHasTopic(t *testing.T) {
	r := Repo{Topics: []string{"Machine-Learning", "go"}}
	assert.True(t, r.HasTopic("machine-learning"))
	assert.True(t, r.HasTopic("GO"))
	assert.False(t, r.HasTopic("rust"))
}

func TestBundleRows(t *testing.T) {
	b := LabelBundle{
		PrimaryCategory: []string{"CLI Tool", "Library"},
		Quality: QualityLabels{
			StarQuality:   "High",
			Documentation: "Good",
			Maintenance:   "Active",
			UseCase:       "Production-Ready",
		},
		Technical: TechnicalLabels{
			Languages: []string{"Go"},
			Platform:  []string{"CLI"},
		},
		Community: CommunityLabels{Size: "Medium", Activity: "Active"},
		Discovery: []DiscoveryLabel{RisingStar},
	}

	rows := b.Rows(7, SourceHeuristic)
	require.Len(t, rows, 11, "empty recognition and innovation are dropped")

	counts := map[LabelType]int{}
	for _, r := range rows {
		assert.Equal(t, uint(7), r.RepoID)
		assert.Equal(t, SourceHeuristic, r.Source)
		counts[r.Type]++
	}
	assert.Equal(t, map[LabelType]int{
		LabelCategory:  2,
		LabelQuality:   4,
		LabelTechnical: 2,
		LabelCommunity: 2,
		LabelDiscovery: 1,
	}, counts)

	assert.Equal(t, Label{RepoID: 7, Type: LabelQuality, Facet: "maintenance", Value: "Active", Confidence: 0.7, Source: SourceHeuristic}, rows[4])
	assert.True(t, b.HasDiscovery(RisingStar))
	assert.False(t, b.HasDiscovery(HiddenGem))
}
