package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/infra/http/middleware"
)

const reconcilerActor = "event_reconciler"

// Inbound event kinds after normalization.
const (
	EventDelivered = "delivered"
	EventReplied   = "replied"
	EventBounced   = "bounced"
)

type InboundEvent struct {
	Kind           string         `json:"kind"`
	CorrelationKey string         `json:"correlation_key,omitempty"`
	ThreadID       string         `json:"thread_id,omitempty"`
	From           string         `json:"from,omitempty"`
	HasAttachments bool           `json:"has_attachments,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
}

type ReconcileResult struct {
	AttemptID    string `json:"attempt_id,omitempty"`
	Applied      bool   `json:"applied"`
	Duplicate    bool   `json:"duplicate"`
	Unreconciled bool   `json:"unreconciled"`
}

type ReconcileEventUseCase struct {
	Repo       entity.OutreachRepositoryInterface
	LeadRepo   entity.LeadRepositoryInterface
	Provenance entity.ProvenanceRepositoryInterface
}

func NewReconcileEventUseCase(
	repo entity.OutreachRepositoryInterface,
	leadRepo entity.LeadRepositoryInterface,
	provenance entity.ProvenanceRepositoryInterface,
) *ReconcileEventUseCase {
	return &ReconcileEventUseCase{Repo: repo, LeadRepo: leadRepo, Provenance: provenance}
}

var eventTargets = map[string]string{
	EventDelivered: entity.OutreachDelivered,
	EventReplied:   entity.OutreachReplied,
	EventBounced:   entity.OutreachBounced,
}

// Execute maps an inbound messaging event onto exactly one attempt.
// Correlation key is the primary path, thread id the best-effort fallback.
// Webhook delivery is at-least-once: unmatched events degrade to an
// unreconciled provenance entry, replays degrade to a duplicate notice.
func (uc *ReconcileEventUseCase) Execute(ctx context.Context, ev InboundEvent) (*ReconcileResult, error) {
	target, ok := eventTargets[ev.Kind]
	if !ok {
		return nil, &DomainError{Code: "UNKNOWN_EVENT", Message: "unknown event kind: " + ev.Kind}
	}

	attempt := uc.resolve(ctx, ev)
	if attempt == nil {
		middleware.RecordEventReconciled(ev.Kind, "unreconciled")
		uc.logProvenance(ctx, "event_unreconciled", "", map[string]any{
			"kind":            ev.Kind,
			"correlation_key": ev.CorrelationKey,
			"thread_id":       ev.ThreadID,
		})
		return &ReconcileResult{Unreconciled: true}, nil
	}

	if !attempt.CanTransition(target) {
		// replayed or out-of-order event: one notice, no second transition
		middleware.RecordEventReconciled(ev.Kind, "duplicate")
		// target_status lets the audit trail tell a replay (target equals or
		// precedes the current status) from an out-of-order event
		uc.logProvenance(ctx, "duplicate_event", attempt.ID, map[string]any{
			"kind":           ev.Kind,
			"current_status": attempt.Status,
			"target_status":  target,
		})
		return &ReconcileResult{AttemptID: attempt.ID, Duplicate: true}, nil
	}

	if err := attempt.Transition(target); err != nil {
		return nil, &TechnicalError{Code: "STATE_ERROR", Message: err.Error()}
	}

	details := map[string]any{"kind": ev.Kind}
	if ev.Kind == EventReplied {
		if ev.HasAttachments {
			// a reply with attachments needs a human before anything automated
			attempt.NeedsReview = true
			attempt.RequiresApproval = true
			details["has_attachments"] = true
		}
		if ev.From != "" {
			details["from"] = ev.From
		}
	}

	if err := uc.Repo.Update(ctx, attempt); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	if ev.Kind == EventReplied {
		if err := uc.LeadRepo.UpdateStage(ctx, attempt.LeadID, entity.StageResponded); err != nil {
			log.Printf("⚠️ [RECONCILE] lead stage update failed for %s: %v", attempt.LeadID, err)
		}
	}

	middleware.RecordEventReconciled(ev.Kind, "applied")
	uc.logProvenance(ctx, fmt.Sprintf("event_%s", ev.Kind), attempt.ID, details)

	return &ReconcileResult{AttemptID: attempt.ID, Applied: true}, nil
}

func (uc *ReconcileEventUseCase) resolve(ctx context.Context, ev InboundEvent) *entity.OutreachAttempt {
	if ev.CorrelationKey != "" {
		if a, err := uc.Repo.FindByCorrelationKey(ctx, ev.CorrelationKey); err == nil && a != nil {
			return a
		}
	}
	if ev.ThreadID != "" {
		if a, err := uc.Repo.FindByThreadID(ctx, ev.ThreadID); err == nil && a != nil {
			return a
		}
	}
	return nil
}

func (uc *ReconcileEventUseCase) logProvenance(ctx context.Context, action, resourceID string, details map[string]any) {
	rec := entity.NewProvenanceRecord(reconcilerActor, action, "outreach", resourceID, details)
	if err := uc.Provenance.Append(ctx, rec); err != nil {
		log.Printf("⚠️ [RECONCILE] provenance write failed: %v", err)
	}
}
