package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Lead stages. A lead row is never deleted; disqualification is a stage.
const (
	StageNew          = "NEW"
	StageEnriched     = "ENRICHED"
	StageSelected     = "SELECTED"
	StageEmailed      = "EMAILED"
	StageResponded    = "RESPONDED"
	StageDisqualified = "DISQUALIFIED"
)

var ErrLeadNotFound = errors.New("lead not found")
var ErrInvalidStage = errors.New("invalid lead stage transition")

type Lead struct {
	ID              string     `json:"id"`
	NaturalKey      string     `json:"natural_key"` // source + source-local id, unique
	Source          string     `json:"source"`      // e.g. "github-issues"
	Repo            string     `json:"repo,omitempty"`
	IssueNumber     int        `json:"issue_number,omitempty"`
	IssueURL        string     `json:"issue_url,omitempty"`
	Title           string     `json:"title"`
	Labels          []string   `json:"labels,omitempty"`
	OriginCreatedAt *time.Time `json:"origin_created_at,omitempty"`
	UserLogin       string     `json:"user_login"`
	ProfileURL      string     `json:"profile_url"`
	Email           string     `json:"email,omitempty"`
	Website         string     `json:"website,omitempty"`
	Signals         Signals    `json:"signals"`
	Score           float64    `json:"score"`
	Stage           string     `json:"stage"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func NewLead(naturalKey, source, title string) (*Lead, error) {
	if naturalKey == "" {
		return nil, errors.New("natural key is required")
	}
	return &Lead{
		ID:         uuid.New().String(),
		NaturalKey: naturalKey,
		Source:     source,
		Title:      title,
		Stage:      StageNew,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, nil
}

// stageRank orders the forward path. DISQUALIFIED sits outside the path and is
// reachable from any non-terminal stage.
var stageRank = map[string]int{
	StageNew:       0,
	StageEnriched:  1,
	StageSelected:  2,
	StageEmailed:   3,
	StageResponded: 4,
}

func IsLeadStage(s string) bool {
	if s == StageDisqualified {
		return true
	}
	_, ok := stageRank[s]
	return ok
}

// CanAdvanceStage rejects backwards moves and resurrection of disqualified leads.
func CanAdvanceStage(from, to string) bool {
	if !IsLeadStage(to) || from == StageDisqualified {
		return false
	}
	if to == StageDisqualified {
		return true
	}
	return stageRank[to] > stageRank[from]
}

type LeadRepositoryInterface interface {
	// Upsert inserts by natural key or refreshes mutable fields of the existing
	// row. Latest non-empty values win. The stored row is loaded back into lead.
	Upsert(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	ListByStage(ctx context.Context, stage string, limit int) ([]*Lead, error)
	UpdateStage(ctx context.Context, id, stage string) error
}
