package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omics-os/leadengine/internal/entity"
)

func newAttempt(t *testing.T) *entity.OutreachAttempt {
	t.Helper()
	return entity.NewOutreachAttempt("lead-1", "proteos_maximus", "user@example.com", "subject", "body")
}

func TestOutreachHappyPath(t *testing.T) {
	a := newAttempt(t)
	assert.Equal(t, entity.OutreachDraft, a.Status)

	for _, next := range []string{
		entity.OutreachQueued,
		entity.OutreachSent,
		entity.OutreachDelivered,
		entity.OutreachReplied,
		entity.OutreachClosed,
	} {
		assert.NoError(t, a.Transition(next))
		assert.Equal(t, next, a.Status)
	}

	assert.NotNil(t, a.QueuedAt)
	assert.NotNil(t, a.SentAt)
	assert.NotNil(t, a.DeliveredAt)
	assert.NotNil(t, a.RepliedAt)
	assert.True(t, a.IsTerminal())
}

func TestOutreachApprovalPath(t *testing.T) {
	a := newAttempt(t)
	assert.NoError(t, a.Transition(entity.OutreachPendingApproval))
	assert.NoError(t, a.Transition(entity.OutreachQueued))
	assert.NoError(t, a.Transition(entity.OutreachSent))
}

func TestOutreachInvalidTransitions(t *testing.T) {
	a := newAttempt(t)

	err := a.Transition(entity.OutreachSent) // DRAFT -> SENT skips QUEUED
	assert.Error(t, err)
	var invalid *entity.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, entity.OutreachDraft, invalid.From)

	// rejected transition must not mutate
	assert.Equal(t, entity.OutreachDraft, a.Status)
	assert.Nil(t, a.SentAt)
}

func TestOutreachCancelFromAnyNonTerminal(t *testing.T) {
	for _, status := range []string{
		entity.OutreachDraft,
		entity.OutreachPendingApproval,
		entity.OutreachQueued,
		entity.OutreachSent,
		entity.OutreachDelivered,
		entity.OutreachReplied,
	} {
		a := newAttempt(t)
		a.Status = status
		assert.NoError(t, a.Transition(entity.OutreachCancelled), "from %s", status)
		assert.True(t, a.IsTerminal())
	}
}

func TestOutreachTerminalIsFinal(t *testing.T) {
	for _, status := range []string{entity.OutreachBounced, entity.OutreachClosed, entity.OutreachCancelled} {
		a := newAttempt(t)
		a.Status = status
		assert.Error(t, a.Transition(entity.OutreachCancelled), "from %s", status)
		assert.Error(t, a.Transition(entity.OutreachQueued), "from %s", status)
	}
}

func TestOutreachDeliveredCanStillBounce(t *testing.T) {
	a := newAttempt(t)
	a.Status = entity.OutreachDelivered
	assert.True(t, a.CanTransition(entity.OutreachBounced))
	assert.True(t, a.CanTransition(entity.OutreachReplied))
	assert.False(t, a.CanTransition(entity.OutreachSent))
}
