package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/omics-os/leadengine/internal/entity"
)

// GitHubClient discovers candidates from open issues of a repository.
// One source string is one "owner/repo". All parsing fallback lives here;
// the engine only sees normalized candidates.
type GitHubClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewGitHubClient(token string) *GitHubClient {
	return &GitHubClient{
		baseURL: "https://api.github.com",
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewGitHubClientWithBaseURL exists for tests against a stub server.
func NewGitHubClientWithBaseURL(token, baseURL string) *GitHubClient {
	c := NewGitHubClient(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type issueResponse struct {
	Number    int    `json:"number"`
	HTMLURL   string `json:"html_url"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
	User struct {
		Login   string `json:"login"`
		HTMLURL string `json:"html_url"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type userResponse struct {
	Login       string `json:"login"`
	Email       string `json:"email"`
	Blog        string `json:"blog"`
	Followers   *int   `json:"followers"`
	PublicRepos *int   `json:"public_repos"`
	CreatedAt   string `json:"created_at"`
}

// FetchCandidates lists recent open issues and enriches each author's
// profile. A failed profile lookup only degrades that one candidate; the
// batch survives.
func (c *GitHubClient) FetchCandidates(ctx context.Context, source string, maxItems int) ([]entity.Candidate, error) {
	if maxItems <= 0 {
		maxItems = 25
	}

	url := fmt.Sprintf("%s/repos/%s/issues?state=open&sort=created&direction=desc&per_page=%d", c.baseURL, source, maxItems)

	var issues []issueResponse
	if err := c.getJSON(ctx, url, &issues); err != nil {
		return nil, fmt.Errorf("failed to list issues for %s: %w", source, err)
	}

	candidates := make([]entity.Candidate, 0, len(issues))
	for _, issue := range issues {
		if issue.PullRequest != nil {
			continue // the issues endpoint also returns PRs
		}

		cand := entity.Candidate{
			NaturalKey:  issue.HTMLURL,
			Source:      "github-issues",
			Repo:        source,
			IssueNumber: issue.Number,
			IssueURL:    issue.HTMLURL,
			Title:       issue.Title,
			Body:        issue.Body,
			UserLogin:   issue.User.Login,
			ProfileURL:  issue.User.HTMLURL,
		}
		for _, l := range issue.Labels {
			cand.Labels = append(cand.Labels, l.Name)
		}
		if t, err := time.Parse(time.RFC3339, issue.CreatedAt); err == nil {
			cand.CreatedAt = &t
		}

		if err := c.enrichProfile(ctx, &cand); err != nil {
			log.Printf("⚠️ [GITHUB] profile enrichment failed for %s: %v", issue.User.Login, err)
		}

		candidates = append(candidates, cand)
	}

	return candidates, nil
}

func (c *GitHubClient) enrichProfile(ctx context.Context, cand *entity.Candidate) error {
	if cand.UserLogin == "" {
		return nil
	}

	var user userResponse
	url := fmt.Sprintf("%s/users/%s", c.baseURL, cand.UserLogin)
	if err := c.getJSON(ctx, url, &user); err != nil {
		return err
	}

	cand.Email = user.Email
	cand.Website = user.Blog
	cand.Followers = user.Followers
	cand.PublicRepos = user.PublicRepos

	if t, err := time.Parse(time.RFC3339, user.CreatedAt); err == nil {
		age := int(time.Since(t).Hours() / 24)
		cand.AccountAgeDays = &age
	}
	return nil
}

func (c *GitHubClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
