package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/omics-os/leadengine/internal/usecase"
)

func NewSender(host string, port int, user, pass, domain string) *Sender {
	if domain == "" {
		domain = "localhost"
	}
	return &Sender{Host: host, Port: port, User: user, Pass: pass, Domain: domain}
}

// Send delivers one message and returns the correlation key assigned to it.
// Errors are classified so dispatch can tell a bad address from a flaky
// relay.
func (s *Sender) Send(ctx context.Context, in usecase.SendInput) (*usecase.SendOutput, error) {
	if _, err := mail.ParseAddress(in.To); err != nil {
		return nil, &usecase.CollaboratorError{
			Code:      "INVALID_ADDRESS",
			Message:   fmt.Sprintf("invalid recipient %q: %v", in.To, err),
			Retryable: false,
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	correlationKey := in.CorrelationKey
	if correlationKey == "" {
		correlationKey = fmt.Sprintf("<%s@%s>", uuid.New().String(), s.Domain)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", in.From)
	m.SetHeader("To", in.To)
	m.SetHeader("Subject", in.Subject)
	m.SetHeader("Message-ID", correlationKey)
	for k, v := range in.Metadata {
		m.SetHeader("X-Leadengine-"+k, v)
	}
	m.SetBody("text/plain", in.Body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)

	if err := d.DialAndSend(m); err != nil {
		return nil, classifySendError(err)
	}

	return &usecase.SendOutput{
		CorrelationKey: correlationKey,
		ThreadID:       correlationKey, // replies thread off the Message-ID
	}, nil
}

// classifySendError maps SMTP failures onto the retryable/permanent split.
// Network trouble and 4xx relay answers retry; 5xx rejections do not.
func classifySendError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &usecase.CollaboratorError{
			Code:      "SMTP_UNREACHABLE",
			Message:   err.Error(),
			Retryable: true,
		}
	}

	msg := err.Error()
	for _, transient := range []string{"421", "450", "451", "452", "rate limit", "timeout", "connection refused"} {
		if strings.Contains(msg, transient) {
			return &usecase.CollaboratorError{Code: "SMTP_TRANSIENT", Message: msg, Retryable: true}
		}
	}

	return &usecase.CollaboratorError{Code: "SMTP_REJECTED", Message: msg, Retryable: false}
}
