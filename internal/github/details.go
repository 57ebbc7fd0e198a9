package github

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"
)

const detailsQuery = `
query($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    readme: object(expression: "HEAD:README.md") { ... on Blob { text } }
    readmeLower: object(expression: "HEAD:readme.md") { ... on Blob { text } }
    readmeRst: object(expression: "HEAD:README.rst") { ... on Blob { text } }
    root: object(expression: "HEAD:") {
      ... on Tree { entries { name type } }
    }
    languages(first: 20, orderBy: {field: SIZE, direction: DESC}) {
      edges { size node { name } }
    }
    defaultBranchRef {
      target { ... on Commit { history { totalCount } } }
    }
    mentionableUsers { totalCount }
  }
}
`

// maxReadme caps stored README text.
const maxReadme = 200_000

// Details is the per-repository enrichment the search API does not return.
type Details struct {
	Readme           string
	Languages        map[string]int
	FileTree         []string
	CommitCount      int
	ContributorCount int
}

type blob struct {
	Text string `json:"text"`
}

type detailsData struct {
	Repository *struct {
		Readme      *blob `json:"readme"`
		ReadmeLower *blob `json:"readmeLower"`
		ReadmeRst   *blob `json:"readmeRst"`
		Root        *struct {
			Entries []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"entries"`
		} `json:"root"`
		Languages struct {
			Edges []struct {
				Size int `json:"size"`
				Node struct {
					Name string `json:"name"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"languages"`
		DefaultBranchRef *struct {
			Target struct {
				History *struct {
					TotalCount int `json:"totalCount"`
				} `json:"history"`
			} `json:"target"`
		} `json:"defaultBranchRef"`
		MentionableUsers struct {
			TotalCount int `json:"totalCount"`
		} `json:"mentionableUsers"`
	} `json:"repository"`
}

// Details fetches README text, language sizes, the root file tree, and
// commit and contributor counts in one GraphQL round trip.
func (c *Client) Details(ctx context.Context, owner, name string) (*Details, error) {
	body, err := c.doGraphQL(ctx, detailsQuery, map[string]any{"owner": owner, "name": name})
	if err != nil {
		return nil, fmt.Errorf("details %s/%s: %w", owner, name, err)
	}

	var data detailsData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing details for %s/%s: %w", owner, name, err)
	}
	if data.Repository == nil {
		return nil, fmt.Errorf("details %s/%s: repository not found", owner, name)
	}
	r := data.Repository

	d := &Details{
		Languages:        make(map[string]int, len(r.Languages.Edges)),
		ContributorCount: r.MentionableUsers.TotalCount,
	}
	for _, b := range []*blob{r.Readme, r.ReadmeLower, r.ReadmeRst} {
		if b != nil && b.Text != "" {
			d.Readme = b.Text
			break
		}
	}
	d.Readme = truncateUTF8(d.Readme, maxReadme)
	for _, e := range r.Languages.Edges {
		d.Languages[e.Node.Name] = e.Size
	}
	if r.Root != nil {
		for _, e := range r.Root.Entries {
			p := e.Name
			if e.Type == "tree" {
				p += "/"
			}
			d.FileTree = append(d.FileTree, p)
		}
		sort.Strings(d.FileTree)
	}
	if r.DefaultBranchRef != nil && r.DefaultBranchRef.Target.History != nil {
		d.CommitCount = r.DefaultBranchRef.Target.History.TotalCount
	}
	return d, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
