package entity

import "time"

// Candidate is one normalized record produced by a discovery collaborator.
// Heterogeneous sources are normalized into this shape before the engine
// ever sees them.
type Candidate struct {
	NaturalKey  string     `json:"natural_key"`
	Source      string     `json:"source"`
	Repo        string     `json:"repo,omitempty"`
	IssueNumber int        `json:"issue_number,omitempty"`
	IssueURL    string     `json:"issue_url,omitempty"`
	Title       string     `json:"title"`
	Labels      []string   `json:"labels,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UserLogin   string     `json:"user_login"`
	ProfileURL  string     `json:"profile_url"`
	Email       string     `json:"email,omitempty"`
	Website     string     `json:"website,omitempty"`
	Body        string     `json:"body,omitempty"`

	// Profile enrichment, nil when the source could not resolve it.
	AccountAgeDays *int `json:"account_age_days,omitempty"`
	Followers      *int `json:"followers,omitempty"`
	PublicRepos    *int `json:"public_repos,omitempty"`
}
