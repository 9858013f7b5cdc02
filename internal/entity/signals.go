package entity

// Signals is the normalized signal bag extracted from one candidate record.
// Pointer fields are signals the source could not resolve; scoring treats
// nil as "unknown", never as zero.
type Signals struct {
	AccountAgeDays    *int     `json:"account_age_days,omitempty"`
	Followers         *int     `json:"followers,omitempty"`
	PublicRepos       *int     `json:"public_repos,omitempty"`
	BodyLength        int      `json:"issue_body_length"`
	CodeBlocksPresent *bool    `json:"code_blocks_present,omitempty"`
	Keywords          []string `json:"keywords"`
	Labels            []string `json:"labels"`
	PunctuationExcess bool     `json:"punctuation_excess"`
}
