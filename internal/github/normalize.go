package github

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// Normalize converts a raw search item plus optional details into the
// canonical record. The output depends only on its inputs; now feeds star
// velocity and RefreshedAt.
func Normalize(it SearchItem, d *Details, now time.Time) models.Repo {
	owner, name := it.Owner.Login, it.Name
	if o, n, ok := strings.Cut(it.FullName, "/"); ok {
		owner, name = o, n
	}

	topics := slices.Clone(it.Topics)
	if topics == nil {
		topics = []string{}
	}

	r := models.Repo{
		URL:           it.HTMLURL,
		Owner:         owner,
		Name:          name,
		FullName:      owner + "/" + name,
		Description:   strings.TrimSpace(it.Description),
		Language:      it.Language,
		Languages:     map[string]int{},
		Stars:         it.Stars,
		Forks:         it.Forks,
		Watchers:      it.Watchers,
		OpenIssues:    it.OpenIssues,
		CreatedAt:     it.CreatedAt.UTC(),
		UpdatedAt:     it.UpdatedAt.UTC(),
		PushedAt:      it.PushedAt.UTC(),
		DefaultBranch: it.DefaultBranch,
		Topics:        topics,
		License:       it.LicenseID(),
		Archived:      it.Archived,
		HasWiki:       it.HasWiki,
		HasPages:      it.HasPages,
		FileTree:      []string{},
		RefreshedAt:   now.UTC(),
	}

	if d != nil {
		r.Readme = d.Readme
		r.Languages = maps.Clone(d.Languages)
		if d.FileTree != nil {
			r.FileTree = slices.Clone(d.FileTree)
		}
		r.CommitCount = d.CommitCount
		r.ContributorCount = d.ContributorCount
	}
	if len(r.Languages) == 0 {
		r.Languages = map[string]int{}
		if it.Language != "" {
			r.Languages[it.Language] = 0
		}
	}

	r.StarVelocity = models.StarVelocity(r.Stars, r.AgeDays(now))
	return r
}
