package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/usecase"
)

func queuedAttempt() *entity.OutreachAttempt {
	a := entity.NewOutreachAttempt("lead-1", testPersona.ID, "novice@example.com", "subject", "body")
	a.Status = entity.OutreachQueued
	return a
}

func newDispatcher(repo *MockOutreachRepository, leadRepo *MockLeadRepository, prov *MockProvenanceRepository, messenger *MockMessenger, retries int) *usecase.DispatchOutreachUseCase {
	return usecase.NewDispatchOutreachUseCase(
		repo, leadRepo, prov, &stubRouter{persona: testPersona}, messenger,
		retries, time.Millisecond,
	)
}

func TestDispatchSendsAndMarksSent(t *testing.T) {
	repo := new(MockOutreachRepository)
	leadRepo := new(MockLeadRepository)
	prov := new(MockProvenanceRepository)
	messenger := new(MockMessenger)

	attempt := queuedAttempt()
	repo.On("FindByID", mock.Anything, attempt.ID).Return(attempt, nil)
	messenger.On("Send", mock.Anything, mock.MatchedBy(func(in usecase.SendInput) bool {
		return in.To == "novice@example.com" && in.From == testPersona.FromEmail
	})).Return(&usecase.SendOutput{CorrelationKey: "<abc@omics-os.com>", ThreadID: "<abc@omics-os.com>"}, nil)
	repo.On("Update", mock.Anything, attempt).Return(nil)
	leadRepo.On("UpdateStage", mock.Anything, "lead-1", entity.StageEmailed).Return(nil)
	prov.On("Append", mock.Anything, mock.Anything).Return(nil)

	uc := newDispatcher(repo, leadRepo, prov, messenger, 3)
	err := uc.Execute(context.Background(), attempt.ID)

	assert.NoError(t, err)
	assert.Equal(t, entity.OutreachSent, attempt.Status)
	assert.Equal(t, "<abc@omics-os.com>", attempt.CorrelationKey)
	assert.NotNil(t, attempt.SentAt)
	leadRepo.AssertCalled(t, "UpdateStage", mock.Anything, "lead-1", entity.StageEmailed)
}

func TestDispatchRetriesTransientFailure(t *testing.T) {
	repo := new(MockOutreachRepository)
	leadRepo := new(MockLeadRepository)
	prov := new(MockProvenanceRepository)
	messenger := new(MockMessenger)

	attempt := queuedAttempt()
	repo.On("FindByID", mock.Anything, attempt.ID).Return(attempt, nil)

	transient := &usecase.CollaboratorError{Code: "RATE_LIMITED", Message: "450 try again", Retryable: true}
	messenger.On("Send", mock.Anything, mock.Anything).Return(nil, transient).Twice()
	messenger.On("Send", mock.Anything, mock.Anything).Return(&usecase.SendOutput{CorrelationKey: "<k@omics-os.com>"}, nil).Once()

	repo.On("Update", mock.Anything, attempt).Return(nil)
	leadRepo.On("UpdateStage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	prov.On("Append", mock.Anything, mock.Anything).Return(nil)

	uc := newDispatcher(repo, leadRepo, prov, messenger, 3)
	err := uc.Execute(context.Background(), attempt.ID)

	assert.NoError(t, err)
	assert.Equal(t, entity.OutreachSent, attempt.Status)
	assert.Equal(t, 2, attempt.Retries)
	messenger.AssertNumberOfCalls(t, "Send", 3)
}

func TestDispatchPermanentFailureCancelsImmediately(t *testing.T) {
	repo := new(MockOutreachRepository)
	leadRepo := new(MockLeadRepository)
	prov := new(MockProvenanceRepository)
	messenger := new(MockMessenger)

	attempt := queuedAttempt()
	repo.On("FindByID", mock.Anything, attempt.ID).Return(attempt, nil)

	permanent := &usecase.CollaboratorError{Code: "INVALID_ADDRESS", Message: "no such mailbox", Retryable: false}
	messenger.On("Send", mock.Anything, mock.Anything).Return(nil, permanent)

	repo.On("Update", mock.Anything, attempt).Return(nil)
	prov.On("Append", mock.Anything, mock.Anything).Return(nil)

	uc := newDispatcher(repo, leadRepo, prov, messenger, 3)
	err := uc.Execute(context.Background(), attempt.ID)

	assert.True(t, usecase.IsDomainError(err))
	assert.Equal(t, entity.OutreachCancelled, attempt.Status)
	assert.Contains(t, attempt.FailureReason, "permanent")
	// no retry on a permanent failure
	messenger.AssertNumberOfCalls(t, "Send", 1)
}

func TestDispatchExhaustedRetriesCancel(t *testing.T) {
	repo := new(MockOutreachRepository)
	prov := new(MockProvenanceRepository)
	messenger := new(MockMessenger)

	attempt := queuedAttempt()
	repo.On("FindByID", mock.Anything, attempt.ID).Return(attempt, nil)

	transient := &usecase.CollaboratorError{Code: "TIMEOUT", Message: "smtp timeout", Retryable: true}
	messenger.On("Send", mock.Anything, mock.Anything).Return(nil, transient)

	repo.On("Update", mock.Anything, attempt).Return(nil)
	prov.On("Append", mock.Anything, mock.Anything).Return(nil)

	uc := newDispatcher(repo, new(MockLeadRepository), prov, messenger, 2)
	err := uc.Execute(context.Background(), attempt.ID)

	assert.True(t, usecase.IsDomainError(err))
	assert.Equal(t, entity.OutreachCancelled, attempt.Status)
	assert.Contains(t, attempt.FailureReason, "retries exhausted")
	messenger.AssertNumberOfCalls(t, "Send", 3) // first try + 2 retries
}

func TestDispatchOnlyQueuedAttempts(t *testing.T) {
	repo := new(MockOutreachRepository)

	attempt := queuedAttempt()
	attempt.Status = entity.OutreachSent
	repo.On("FindByID", mock.Anything, attempt.ID).Return(attempt, nil)

	uc := newDispatcher(repo, new(MockLeadRepository), new(MockProvenanceRepository), new(MockMessenger), 1)
	err := uc.Execute(context.Background(), attempt.ID)
	assert.True(t, usecase.IsDomainError(err))
}

func TestDispatchPersistsCorrelationKeyBeforeSend(t *testing.T) {
	repo := new(MockOutreachRepository)
	leadRepo := new(MockLeadRepository)
	prov := new(MockProvenanceRepository)
	messenger := new(MockMessenger)

	attempt := queuedAttempt()
	repo.On("FindByID", mock.Anything, attempt.ID).Return(attempt, nil)

	var calls []string
	var sentKeys []string
	repo.On("Update", mock.Anything, attempt).Run(func(_ mock.Arguments) {
		calls = append(calls, "update")
	}).Return(nil)

	transient := &usecase.CollaboratorError{Code: "TIMEOUT", Message: "smtp timeout", Retryable: true}
	messenger.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		calls = append(calls, "send")
		sentKeys = append(sentKeys, args.Get(1).(usecase.SendInput).CorrelationKey)
	}).Return(nil, transient).Once()
	// the relay echoes the Message-ID it was handed, like the SMTP sender does
	out := &usecase.SendOutput{}
	messenger.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(usecase.SendInput)
		calls = append(calls, "send")
		sentKeys = append(sentKeys, in.CorrelationKey)
		out.CorrelationKey = in.CorrelationKey
	}).Return(out, nil).Once()

	leadRepo.On("UpdateStage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	prov.On("Append", mock.Anything, mock.Anything).Return(nil)

	uc := newDispatcher(repo, leadRepo, prov, messenger, 3)
	err := uc.Execute(context.Background(), attempt.ID)

	assert.NoError(t, err)
	// the key hits the database before the relay ever sees the message, so a
	// crash after Send can never leave an unmarked attempt for the sweeper
	assert.Equal(t, "update", calls[0])
	assert.Equal(t, "send", calls[1])
	assert.NotEmpty(t, sentKeys[0])
	assert.True(t, strings.HasPrefix(sentKeys[0], "<"))
	assert.True(t, strings.HasSuffix(sentKeys[0], "@omics-os.com>"))
	// retries reuse the persisted key, never mint a second Message-ID
	assert.Equal(t, sentKeys[0], sentKeys[1])
	assert.Equal(t, sentKeys[0], attempt.CorrelationKey)
}

func TestDispatchHonorsCancellation(t *testing.T) {
	repo := new(MockOutreachRepository)
	messenger := new(MockMessenger)

	attempt := queuedAttempt()
	repo.On("FindByID", mock.Anything, attempt.ID).Return(attempt, nil)
	repo.On("Update", mock.Anything, attempt).Return(nil)

	transient := &usecase.CollaboratorError{Code: "TIMEOUT", Message: "smtp timeout", Retryable: true}
	messenger.On("Send", mock.Anything, mock.Anything).Return(nil, transient)

	uc := usecase.NewDispatchOutreachUseCase(
		repo, new(MockLeadRepository), new(MockProvenanceRepository),
		&stubRouter{persona: testPersona}, messenger, 5, time.Hour,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := uc.Execute(ctx, attempt.ID)
	assert.ErrorIs(t, err, context.Canceled)
	messenger.AssertNumberOfCalls(t, "Send", 1)
}
