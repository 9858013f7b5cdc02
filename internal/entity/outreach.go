package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outreach attempt statuses. Transitions only move forward; a terminal
// attempt is never resurrected, re-outreach means a new attempt.
const (
	OutreachDraft           = "DRAFT"
	OutreachPendingApproval = "PENDING_APPROVAL"
	OutreachQueued          = "QUEUED"
	OutreachSent            = "SENT"
	OutreachDelivered       = "DELIVERED"
	OutreachReplied         = "REPLIED"
	OutreachBounced         = "BOUNCED"
	OutreachClosed          = "CLOSED"
	OutreachCancelled       = "CANCELLED"
)

var (
	ErrAttemptNotFound     = errors.New("outreach attempt not found")
	ErrActiveAttemptExists = errors.New("lead already has an active outreach attempt")
)

type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid outreach transition %s -> %s", e.From, e.To)
}

type OutreachAttempt struct {
	ID               string     `json:"id"`
	LeadID           string     `json:"lead_id"`
	PersonaID        string     `json:"persona_id"`
	Recipient        string     `json:"recipient"`
	Subject          string     `json:"subject"`
	Body             string     `json:"body"`
	CorrelationKey   string     `json:"correlation_key,omitempty"` // assigned at send time
	ThreadID         string     `json:"thread_id,omitempty"`
	Status           string     `json:"status"`
	RequiresApproval bool       `json:"requires_approval"`
	ApprovalReason   string     `json:"approval_reason,omitempty"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	NeedsReview      bool       `json:"needs_review"` // reply carried an attachment
	FailureReason    string     `json:"failure_reason,omitempty"`
	Retries          int        `json:"retries"`
	QueuedAt         *time.Time `json:"queued_at,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	RepliedAt        *time.Time `json:"replied_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func NewOutreachAttempt(leadID, personaID, recipient, subject, body string) *OutreachAttempt {
	return &OutreachAttempt{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		PersonaID: personaID,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Status:    OutreachDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

var outreachTransitions = map[string][]string{
	OutreachDraft:           {OutreachPendingApproval, OutreachQueued},
	OutreachPendingApproval: {OutreachQueued},
	OutreachQueued:          {OutreachSent},
	OutreachSent:            {OutreachDelivered, OutreachReplied, OutreachBounced},
	OutreachDelivered:       {OutreachReplied, OutreachBounced},
	OutreachReplied:         {OutreachClosed},
	OutreachBounced:         {},
	OutreachClosed:          {},
	OutreachCancelled:       {},
}

func (o *OutreachAttempt) IsTerminal() bool {
	switch o.Status {
	case OutreachBounced, OutreachClosed, OutreachCancelled:
		return true
	}
	return false
}

func (o *OutreachAttempt) CanTransition(to string) bool {
	if to == OutreachCancelled {
		return !o.IsTerminal()
	}
	for _, next := range outreachTransitions[o.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a status change or rejects it without mutating state.
func (o *OutreachAttempt) Transition(to string) error {
	if !o.CanTransition(to) {
		return &InvalidTransitionError{From: o.Status, To: to}
	}
	now := time.Now()
	switch to {
	case OutreachQueued:
		o.QueuedAt = &now
	case OutreachSent:
		o.SentAt = &now
	case OutreachDelivered:
		o.DeliveredAt = &now
	case OutreachReplied:
		o.RepliedAt = &now
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

type OutreachRepositoryInterface interface {
	// Create fails with ErrActiveAttemptExists when the lead already has an
	// attempt in a non-terminal status.
	Create(ctx context.Context, attempt *OutreachAttempt) error
	FindByID(ctx context.Context, id string) (*OutreachAttempt, error)
	FindByCorrelationKey(ctx context.Context, key string) (*OutreachAttempt, error)
	FindByThreadID(ctx context.Context, threadID string) (*OutreachAttempt, error)
	FindLastByRecipient(ctx context.Context, recipient string) (*OutreachAttempt, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*OutreachAttempt, error)
	Update(ctx context.Context, attempt *OutreachAttempt) error
}
