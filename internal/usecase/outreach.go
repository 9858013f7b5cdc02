package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/infra/queue"
)

const coordinatorActor = "outreach_coordinator"

type CreateOutreachInput struct {
	LeadID      string `json:"lead_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	RequestedBy string `json:"requested_by"`
}

type OutreachCoordinator struct {
	Repo        entity.OutreachRepositoryInterface
	LeadRepo    entity.LeadRepositoryInterface
	Provenance  entity.ProvenanceRepositoryInterface
	Router      PersonaRouter
	Producer    QueueProducerInterface
	Policy      ApprovalPolicy
	AutoEnabled bool          // false forces approval on every attempt
	CoolDown    time.Duration // suppress re-outreach to the same recipient
}

func NewOutreachCoordinator(
	repo entity.OutreachRepositoryInterface,
	leadRepo entity.LeadRepositoryInterface,
	provenance entity.ProvenanceRepositoryInterface,
	router PersonaRouter,
	producer QueueProducerInterface,
	policy ApprovalPolicy,
	autoEnabled bool,
	coolDown time.Duration,
) *OutreachCoordinator {
	if policy == nil {
		policy = DefaultApprovalPolicy
	}
	return &OutreachCoordinator{
		Repo:        repo,
		LeadRepo:    leadRepo,
		Provenance:  provenance,
		Router:      router,
		Producer:    producer,
		Policy:      policy,
		AutoEnabled: autoEnabled,
		CoolDown:    coolDown,
	}
}

// Create builds one attempt for a lead, applies the approval policy and
// either parks it in PENDING_APPROVAL or queues it for dispatch. At most one
// non-terminal attempt may exist per lead.
func (uc *OutreachCoordinator) Create(ctx context.Context, input CreateOutreachInput) (*entity.OutreachAttempt, error) {
	lead, err := uc.LeadRepo.FindByID(ctx, input.LeadID)
	if err != nil {
		return nil, &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead not found: " + input.LeadID}
	}
	if lead.Email == "" {
		return nil, &DomainError{Code: "NO_CONTACT", Message: "lead has no resolvable email address"}
	}
	if lead.Stage == entity.StageDisqualified {
		return nil, &DomainError{Code: "LEAD_DISQUALIFIED", Message: "lead is disqualified"}
	}

	if uc.CoolDown > 0 {
		last, err := uc.Repo.FindLastByRecipient(ctx, lead.Email)
		if err != nil && !errors.Is(err, entity.ErrAttemptNotFound) {
			// a failed lookup must not silently disable the suppression window
			return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
		}
		if last != nil && time.Since(last.CreatedAt) < uc.CoolDown {
			return nil, &DomainError{
				Code:    "RECENT_OUTREACH",
				Message: fmt.Sprintf("outreach to %s already created at %s", lead.Email, last.CreatedAt.Format(time.RFC3339)),
			}
		}
	}

	p := uc.Router.Route(lead)
	attempt := entity.NewOutreachAttempt(lead.ID, p.ID, lead.Email, input.Subject, input.Body)

	// approval gate, one policy function instead of scattered flags
	required, reason := uc.Policy(attempt, lead.UserLogin)
	if !uc.AutoEnabled && !required {
		required, reason = true, "automated outreach disabled"
	}

	next := entity.OutreachQueued
	if required {
		attempt.RequiresApproval = true
		attempt.ApprovalReason = reason
		next = entity.OutreachPendingApproval
	}
	if err := attempt.Transition(next); err != nil {
		return nil, &TechnicalError{Code: "STATE_ERROR", Message: err.Error()}
	}

	txn := NewTransaction()
	txn.AddOperation("create_attempt", func(ctx context.Context) error {
		return uc.Repo.Create(ctx, attempt)
	})
	txn.AddCompensation("cancel_attempt", func(ctx context.Context) error {
		attempt.FailureReason = "rolled back: dispatch publish failed"
		attempt.Status = entity.OutreachCancelled
		return uc.Repo.Update(ctx, attempt)
	})
	if next == entity.OutreachQueued {
		txn.AddOperation("publish_dispatch", func(ctx context.Context) error {
			return uc.Producer.PublishDispatch(ctx, queue.DispatchPayload{AttemptID: attempt.ID, LeadID: lead.ID})
		})
	}

	if err := txn.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrActiveAttemptExists) {
			return nil, &DomainError{Code: "ACTIVE_ATTEMPT_EXISTS", Message: entity.ErrActiveAttemptExists.Error()}
		}
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	uc.logProvenance(ctx, input.RequestedBy, "outreach_created", attempt.ID, map[string]any{
		"lead_id":           lead.ID,
		"persona":           p.ID,
		"status":            attempt.Status,
		"requires_approval": attempt.RequiresApproval,
		"approval_reason":   attempt.ApprovalReason,
	})

	return attempt, nil
}

// Approve releases a PENDING_APPROVAL attempt into the dispatch queue,
// recording who approved it.
func (uc *OutreachCoordinator) Approve(ctx context.Context, attemptID, approver string) (*entity.OutreachAttempt, error) {
	attempt, err := uc.Repo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, &DomainError{Code: "ATTEMPT_NOT_FOUND", Message: "outreach attempt not found: " + attemptID}
	}
	if attempt.Status != entity.OutreachPendingApproval {
		return nil, &DomainError{
			Code:    "NOT_PENDING_APPROVAL",
			Message: fmt.Sprintf("attempt %s is %s, only PENDING_APPROVAL can be approved", attemptID, attempt.Status),
		}
	}

	now := time.Now()
	attempt.ApprovedBy = approver
	attempt.ApprovedAt = &now
	if err := attempt.Transition(entity.OutreachQueued); err != nil {
		return nil, &TechnicalError{Code: "STATE_ERROR", Message: err.Error()}
	}

	if err := uc.Repo.Update(ctx, attempt); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}
	if err := uc.Producer.PublishDispatch(ctx, queue.DispatchPayload{AttemptID: attempt.ID, LeadID: attempt.LeadID}); err != nil {
		return nil, &TechnicalError{Code: "QUEUE_ERROR", Message: err.Error()}
	}

	uc.logProvenance(ctx, approver, "outreach_approved", attempt.ID, map[string]any{
		"approved_at": now,
	})
	return attempt, nil
}

// Close resolves a replied attempt, ending the thread. Only REPLIED can
// close; closing frees the lead for a future attempt without mislabeling a
// successful outreach as a failure.
func (uc *OutreachCoordinator) Close(ctx context.Context, attemptID, actor string) (*entity.OutreachAttempt, error) {
	attempt, err := uc.Repo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, &DomainError{Code: "ATTEMPT_NOT_FOUND", Message: "outreach attempt not found: " + attemptID}
	}
	if err := attempt.Transition(entity.OutreachClosed); err != nil {
		return nil, &DomainError{Code: "NOT_REPLIED", Message: err.Error()}
	}

	if err := uc.Repo.Update(ctx, attempt); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	uc.logProvenance(ctx, actor, "outreach_closed", attempt.ID, map[string]any{
		"lead_id": attempt.LeadID,
	})
	return attempt, nil
}

// Cancel is valid from any non-terminal status and is itself terminal.
func (uc *OutreachCoordinator) Cancel(ctx context.Context, attemptID, reason, actor string) (*entity.OutreachAttempt, error) {
	attempt, err := uc.Repo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, &DomainError{Code: "ATTEMPT_NOT_FOUND", Message: "outreach attempt not found: " + attemptID}
	}
	if err := attempt.Transition(entity.OutreachCancelled); err != nil {
		return nil, &DomainError{Code: "ALREADY_TERMINAL", Message: err.Error()}
	}
	attempt.FailureReason = reason

	if err := uc.Repo.Update(ctx, attempt); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	uc.logProvenance(ctx, actor, "outreach_cancelled", attempt.ID, map[string]any{
		"reason": reason,
	})
	return attempt, nil
}

func (uc *OutreachCoordinator) logProvenance(ctx context.Context, actor, action, resourceID string, details map[string]any) {
	if actor == "" {
		actor = coordinatorActor
	}
	rec := entity.NewProvenanceRecord(actor, action, "outreach", resourceID, details)
	if err := uc.Provenance.Append(ctx, rec); err != nil {
		log.Printf("⚠️ [OUTREACH] provenance write failed: %v", err)
	}
}
