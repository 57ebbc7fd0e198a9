package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/httpx"
	"github.com/kevinmichaelchen/repoboard/internal/models"
)

// PerPage is the upstream maximum page size for repository search.
const PerPage = 100

// Client talks to the GitHub REST search API and the GraphQL API.
type Client struct {
	http    *httpx.Client
	baseURL string
}

// NewClient builds a client for baseURL (https://api.github.com in
// production). An empty token issues unauthenticated requests.
func NewClient(baseURL, token string, timeout time.Duration, opts ...httpx.Option) *Client {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
		"User-Agent":           "repoboard",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		http:    httpx.NewClient(timeout, headers, opts...),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// SearchItem is one raw entry of a /search/repositories response. The
// single-repository REST endpoint returns the same shape.
type SearchItem struct {
	HTMLURL       string    `json:"html_url"`
	FullName      string    `json:"full_name"`
	Name          string    `json:"name"`
	Owner         owner     `json:"owner"`
	Description   string    `json:"description"`
	Stars         int       `json:"stargazers_count"`
	Forks         int       `json:"forks_count"`
	Watchers      int       `json:"watchers_count"`
	OpenIssues    int       `json:"open_issues_count"`
	Language      string    `json:"language"`
	Topics        []string  `json:"topics"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PushedAt      time.Time `json:"pushed_at"`
	DefaultBranch string    `json:"default_branch"`
	Archived      bool      `json:"archived"`
	License       *license  `json:"license"`
	HasWiki       bool      `json:"has_wiki"`
	HasPages      bool      `json:"has_pages"`
}

type owner struct {
	Login string `json:"login"`
}

type license struct {
	Key    string `json:"key"`
	SPDXID string `json:"spdx_id"`
	Name   string `json:"name"`
}

// LicenseID returns the SPDX identifier, falling back to the license key.
func (it SearchItem) LicenseID() string {
	if it.License == nil {
		return ""
	}
	if it.License.SPDXID != "" && it.License.SPDXID != "NOASSERTION" {
		return it.License.SPDXID
	}
	return it.License.Key
}

// Velocity is stars per day of age as of now.
func (it SearchItem) Velocity(now time.Time) float64 {
	days := 1
	if !it.CreatedAt.IsZero() {
		days = models.DaysBetween(it.CreatedAt, now)
	}
	return models.StarVelocity(it.Stars, days)
}

// Quality is the five-factor binary hidden-gem score: license, wiki or
// pages, description, topics and not archived, each worth 0.2.
func (it SearchItem) Quality() float64 {
	n := 0
	if it.License != nil {
		n++
	}
	if it.HasWiki || it.HasPages {
		n++
	}
	if it.Description != "" {
		n++
	}
	if len(it.Topics) > 0 {
		n++
	}
	if !it.Archived {
		n++
	}
	return float64(n) / 5
}

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []SearchItem `json:"items"`
}

// Search returns one page of repositories matching query, ordered by sort
// descending.
func (c *Client) Search(ctx context.Context, query, sort string, page int) ([]SearchItem, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", sort)
	q.Set("order", "desc")
	q.Set("per_page", strconv.Itoa(PerPage))
	q.Set("page", strconv.Itoa(page))

	var resp searchResponse
	if err := c.http.Get(ctx, c.baseURL+"/search/repositories?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search %q page %d: %w", query, page, err)
	}
	return resp.Items, nil
}

// Repository fetches a single repository by owner and name.
func (c *Client) Repository(ctx context.Context, owner, name string) (SearchItem, error) {
	var it SearchItem
	u := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(name))
	if err := c.http.Get(ctx, u, &it); err != nil {
		return SearchItem{}, fmt.Errorf("repository %s/%s: %w", owner, name, err)
	}
	return it, nil
}

// FetchText GETs an arbitrary URL, such as a raw awesome-list README.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	return c.http.GetText(ctx, rawURL)
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) doGraphQL(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := c.http.PostJSON(ctx, c.baseURL+"/graphql", graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("parsing GraphQL response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL error: %s", gqlResp.Errors[0].Message)
	}
	return gqlResp.Data, nil
}
