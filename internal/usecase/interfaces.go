package usecase

import (
	"context"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/infra/queue"
)

// Discovery is the contract with any discovery collaborator. Implementations
// own all retry, parsing and fallback logic; the engine only consumes the
// normalized candidate stream. Partial results are fine.
type Discovery interface {
	FetchCandidates(ctx context.Context, source string, maxItems int) ([]entity.Candidate, error)
}

type SendInput struct {
	To      string
	From    string
	Subject string
	Body    string
	// CorrelationKey, when set, is used as the outgoing Message-ID so the
	// key can be persisted before the send ever happens.
	CorrelationKey string
	Metadata       map[string]string
}

type SendOutput struct {
	CorrelationKey string // echoed back verbatim in delivery/reply events
	ThreadID       string
}

// Messenger is the outbound side of the messaging collaborator. Errors must
// be classified via CollaboratorError so dispatch can tell retryable
// (rate limit, timeout) from permanent (invalid address).
type Messenger interface {
	Send(ctx context.Context, in SendInput) (*SendOutput, error)
}

type QueueProducerInterface interface {
	PublishDispatch(ctx context.Context, payload queue.DispatchPayload) error
}

// PersonaRouter maps a qualified lead to exactly one outreach identity.
type PersonaRouter interface {
	Route(lead *entity.Lead) entity.Persona
	ByID(id string) (entity.Persona, bool)
}
