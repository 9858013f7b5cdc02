package mail

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omics-os/leadengine/internal/usecase"
)

func TestSendRejectsInvalidRecipient(t *testing.T) {
	s := NewSender("localhost", 587, "", "", "omics-os.com")

	_, err := s.Send(context.Background(), usecase.SendInput{To: "not-an-address"})

	var collab *usecase.CollaboratorError
	assert.ErrorAs(t, err, &collab)
	assert.Equal(t, "INVALID_ADDRESS", collab.Code)
	assert.False(t, collab.Retryable)
	assert.False(t, usecase.IsRetryable(err))
}

func TestSendHonorsCancelledContext(t *testing.T) {
	s := NewSender("localhost", 587, "", "", "omics-os.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Send(ctx, usecase.SendInput{To: "valid@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifySendError(t *testing.T) {
	t.Run("Network Error Is Retryable", func(t *testing.T) {
		err := classifySendError(timeoutErr{})
		assert.True(t, usecase.IsRetryable(err))
	})

	t.Run("Transient SMTP Codes Retry", func(t *testing.T) {
		for _, msg := range []string{
			"421 service not available",
			"450 mailbox busy",
			"451 local error",
			"452 insufficient storage",
			"rate limit exceeded",
			"connection refused",
		} {
			err := classifySendError(errors.New(msg))
			assert.True(t, usecase.IsRetryable(err), msg)
		}
	})

	t.Run("Rejections Are Permanent", func(t *testing.T) {
		for _, msg := range []string{
			"550 no such user",
			"553 mailbox name not allowed",
			"554 transaction failed",
		} {
			err := classifySendError(errors.New(msg))
			assert.False(t, usecase.IsRetryable(err), msg)

			var collab *usecase.CollaboratorError
			assert.ErrorAs(t, err, &collab)
			assert.Equal(t, "SMTP_REJECTED", collab.Code)
		}
	})
}
