package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/usecase"
)

func attemptWith(subject, body string) *entity.OutreachAttempt {
	return entity.NewOutreachAttempt("lead-1", "p", "user@example.com", subject, body)
}

func TestDefaultApprovalPolicySensitiveKeywords(t *testing.T) {
	cases := []struct {
		subject string
		body    string
	}{
		{"About your PHI handling", "plain body"},
		{"hello", "we noticed clinical trial data"},
		{"patient data pipeline", ""},
		{"hi", "identifiable records in the export"},
	}

	for _, c := range cases {
		required, reason := usecase.DefaultApprovalPolicy(attemptWith(c.subject, c.body), "")
		assert.True(t, required, "subject=%q body=%q", c.subject, c.body)
		assert.NotEmpty(t, reason)
	}
}

func TestDefaultApprovalPolicySeniorTitles(t *testing.T) {
	required, reason := usecase.DefaultApprovalPolicy(attemptWith("hi", "plain"), "Jane Doe, CTO")
	assert.True(t, required)
	assert.Contains(t, reason, "senior")

	required, _ = usecase.DefaultApprovalPolicy(attemptWith("hi", "plain"), "Head of Platform")
	assert.True(t, required)
}

func TestDefaultApprovalPolicyPlainContentPasses(t *testing.T) {
	required, reason := usecase.DefaultApprovalPolicy(
		attemptWith("Your scanpy question", "saw your issue about clustering"),
		"novice-dev",
	)
	assert.False(t, required)
	assert.Empty(t, reason)
}
