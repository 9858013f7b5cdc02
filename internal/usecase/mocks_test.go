package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/infra/queue"
	"github.com/omics-os/leadengine/internal/usecase"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListByStage(ctx context.Context, stage string, limit int) ([]*entity.Lead, error) {
	args := m.Called(ctx, stage, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStage(ctx context.Context, id, stage string) error {
	args := m.Called(ctx, id, stage)
	return args.Error(0)
}

// MockOutreachRepository
type MockOutreachRepository struct {
	mock.Mock
}

func (m *MockOutreachRepository) Create(ctx context.Context, attempt *entity.OutreachAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockOutreachRepository) FindByID(ctx context.Context, id string) (*entity.OutreachAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OutreachAttempt), args.Error(1)
}

func (m *MockOutreachRepository) FindByCorrelationKey(ctx context.Context, key string) (*entity.OutreachAttempt, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OutreachAttempt), args.Error(1)
}

func (m *MockOutreachRepository) FindByThreadID(ctx context.Context, threadID string) (*entity.OutreachAttempt, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OutreachAttempt), args.Error(1)
}

func (m *MockOutreachRepository) FindLastByRecipient(ctx context.Context, recipient string) (*entity.OutreachAttempt, error) {
	args := m.Called(ctx, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OutreachAttempt), args.Error(1)
}

func (m *MockOutreachRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.OutreachAttempt, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.OutreachAttempt), args.Error(1)
}

func (m *MockOutreachRepository) Update(ctx context.Context, attempt *entity.OutreachAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

// MockProvenanceRepository
type MockProvenanceRepository struct {
	mock.Mock
}

func (m *MockProvenanceRepository) Append(ctx context.Context, rec *entity.ProvenanceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockProvenanceRepository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]*entity.ProvenanceRecord, error) {
	args := m.Called(ctx, resourceType, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.ProvenanceRecord), args.Error(1)
}

// MockQueueProducer
type MockQueueProducer struct {
	mock.Mock
}

func (m *MockQueueProducer) PublishDispatch(ctx context.Context, payload queue.DispatchPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// MockMessenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, in usecase.SendInput) (*usecase.SendOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SendOutput), args.Error(1)
}

// MockDiscovery
type MockDiscovery struct {
	mock.Mock
}

func (m *MockDiscovery) FetchCandidates(ctx context.Context, source string, maxItems int) ([]entity.Candidate, error) {
	args := m.Called(ctx, source, maxItems)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Candidate), args.Error(1)
}

// stubRouter always routes to one fixed persona.
type stubRouter struct {
	persona entity.Persona
}

func (s *stubRouter) Route(_ *entity.Lead) entity.Persona { return s.persona }

func (s *stubRouter) ByID(id string) (entity.Persona, bool) {
	if id == s.persona.ID {
		return s.persona, true
	}
	return entity.Persona{}, false
}
