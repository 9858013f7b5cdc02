package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/infra/http/middleware"
)

const dispatchActor = "dispatcher"

type DispatchOutreachUseCase struct {
	Repo       entity.OutreachRepositoryInterface
	LeadRepo   entity.LeadRepositoryInterface
	Provenance entity.ProvenanceRepositoryInterface
	Router     PersonaRouter
	Messenger  Messenger

	MaxRetries  int           // retries after the first send attempt
	BaseBackoff time.Duration // doubled on every retry
}

func NewDispatchOutreachUseCase(
	repo entity.OutreachRepositoryInterface,
	leadRepo entity.LeadRepositoryInterface,
	provenance entity.ProvenanceRepositoryInterface,
	router PersonaRouter,
	messenger Messenger,
	maxRetries int,
	baseBackoff time.Duration,
) *DispatchOutreachUseCase {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseBackoff <= 0 {
		baseBackoff = 30 * time.Second
	}
	return &DispatchOutreachUseCase{
		Repo:        repo,
		LeadRepo:    leadRepo,
		Provenance:  provenance,
		Router:      router,
		Messenger:   messenger,
		MaxRetries:  maxRetries,
		BaseBackoff: baseBackoff,
	}
}

// Execute sends one QUEUED attempt through the messaging collaborator.
// Retryable send failures back off exponentially up to MaxRetries; permanent
// failures and exhausted retries cancel the attempt with a recorded reason
// so the operator sees it, nothing is silently lost.
func (uc *DispatchOutreachUseCase) Execute(ctx context.Context, attemptID string) error {
	attempt, err := uc.Repo.FindByID(ctx, attemptID)
	if err != nil {
		return &DomainError{Code: "ATTEMPT_NOT_FOUND", Message: "outreach attempt not found: " + attemptID}
	}
	if attempt.Status != entity.OutreachQueued {
		return &DomainError{
			Code:    "NOT_QUEUED",
			Message: fmt.Sprintf("attempt %s is %s, only QUEUED can be dispatched", attemptID, attempt.Status),
		}
	}

	p, ok := uc.Router.ByID(attempt.PersonaID)
	if !ok {
		return uc.fail(ctx, attempt, fmt.Sprintf("persona %q no longer registered", attempt.PersonaID))
	}

	// persist the correlation key while still QUEUED: an attempt that
	// carries a key may already have reached the relay, so the sweeper must
	// never republish it
	if attempt.CorrelationKey == "" {
		attempt.CorrelationKey = fmt.Sprintf("<%s@%s>", uuid.New().String(), mailDomain(p.FromEmail))
		if err := uc.Repo.Update(ctx, attempt); err != nil {
			return &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
		}
	}

	backoff := uc.BaseBackoff
	var lastErr error
	for try := 0; try <= uc.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			attempt.Retries++
		}

		out, err := uc.Messenger.Send(ctx, SendInput{
			To:             attempt.Recipient,
			From:           p.FromEmail,
			Subject:        attempt.Subject,
			Body:           attempt.Body,
			CorrelationKey: attempt.CorrelationKey,
			Metadata: map[string]string{
				"attempt_id": attempt.ID,
				"lead_id":    attempt.LeadID,
				"persona":    p.ID,
			},
		})
		if err == nil {
			return uc.markSent(ctx, attempt, out)
		}

		lastErr = err
		if !IsRetryable(err) {
			return uc.fail(ctx, attempt, fmt.Sprintf("permanent send failure: %v", err))
		}
		log.Printf("⚠️ [DISPATCH] retryable send failure for %s (try %d/%d): %v", attempt.ID, try+1, uc.MaxRetries+1, err)
	}

	return uc.fail(ctx, attempt, fmt.Sprintf("retries exhausted after %d attempts: %v", uc.MaxRetries+1, lastErr))
}

func mailDomain(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}

func (uc *DispatchOutreachUseCase) markSent(ctx context.Context, attempt *entity.OutreachAttempt, out *SendOutput) error {
	attempt.CorrelationKey = out.CorrelationKey
	attempt.ThreadID = out.ThreadID
	if err := attempt.Transition(entity.OutreachSent); err != nil {
		return &TechnicalError{Code: "STATE_ERROR", Message: err.Error()}
	}
	if err := uc.Repo.Update(ctx, attempt); err != nil {
		return &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	if err := uc.LeadRepo.UpdateStage(ctx, attempt.LeadID, entity.StageEmailed); err != nil {
		log.Printf("⚠️ [DISPATCH] lead stage update failed for %s: %v", attempt.LeadID, err)
	}

	middleware.RecordOutreachSent(attempt.PersonaID)
	uc.logProvenance(ctx, "outreach_sent", attempt.ID, map[string]any{
		"correlation_key": attempt.CorrelationKey,
		"recipient":       attempt.Recipient,
		"retries":         attempt.Retries,
	})
	return nil
}

func (uc *DispatchOutreachUseCase) fail(ctx context.Context, attempt *entity.OutreachAttempt, reason string) error {
	attempt.FailureReason = reason
	if err := attempt.Transition(entity.OutreachCancelled); err != nil {
		return &TechnicalError{Code: "STATE_ERROR", Message: err.Error()}
	}
	if err := uc.Repo.Update(ctx, attempt); err != nil {
		return &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
	}

	uc.logProvenance(ctx, "outreach_send_failed", attempt.ID, map[string]any{
		"reason": reason,
	})
	return &DomainError{Code: "SEND_FAILED", Message: reason}
}

func (uc *DispatchOutreachUseCase) logProvenance(ctx context.Context, action, resourceID string, details map[string]any) {
	rec := entity.NewProvenanceRecord(dispatchActor, action, "outreach", resourceID, details)
	if err := uc.Provenance.Append(ctx, rec); err != nil {
		log.Printf("⚠️ [DISPATCH] provenance write failed: %v", err)
	}
}
