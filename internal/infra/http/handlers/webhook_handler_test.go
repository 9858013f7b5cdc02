package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/infra/http/handlers"
	"github.com/omics-os/leadengine/internal/usecase"
)

// in-memory fakes, just enough reconciler plumbing for handler tests

type fakeOutreachRepo struct {
	attempt *entity.OutreachAttempt
}

func (f *fakeOutreachRepo) Create(context.Context, *entity.OutreachAttempt) error { return nil }

func (f *fakeOutreachRepo) FindByID(context.Context, string) (*entity.OutreachAttempt, error) {
	return nil, entity.ErrAttemptNotFound
}

func (f *fakeOutreachRepo) FindByCorrelationKey(_ context.Context, key string) (*entity.OutreachAttempt, error) {
	if f.attempt != nil && f.attempt.CorrelationKey == key {
		return f.attempt, nil
	}
	return nil, entity.ErrAttemptNotFound
}

func (f *fakeOutreachRepo) FindByThreadID(_ context.Context, threadID string) (*entity.OutreachAttempt, error) {
	if f.attempt != nil && f.attempt.ThreadID == threadID {
		return f.attempt, nil
	}
	return nil, entity.ErrAttemptNotFound
}

func (f *fakeOutreachRepo) FindLastByRecipient(context.Context, string) (*entity.OutreachAttempt, error) {
	return nil, entity.ErrAttemptNotFound
}

func (f *fakeOutreachRepo) ListByStatus(context.Context, string, int) ([]*entity.OutreachAttempt, error) {
	return nil, nil
}

func (f *fakeOutreachRepo) Update(context.Context, *entity.OutreachAttempt) error { return nil }

type fakeLeadRepo struct{}

func (fakeLeadRepo) Upsert(context.Context, *entity.Lead) error { return nil }
func (fakeLeadRepo) FindByID(context.Context, string) (*entity.Lead, error) {
	return nil, entity.ErrLeadNotFound
}
func (fakeLeadRepo) ListByStage(context.Context, string, int) ([]*entity.Lead, error) {
	return nil, nil
}
func (fakeLeadRepo) UpdateStage(context.Context, string, string) error { return nil }

type fakeProvenanceRepo struct {
	actions []string
}

func (f *fakeProvenanceRepo) Append(_ context.Context, rec *entity.ProvenanceRecord) error {
	f.actions = append(f.actions, rec.Action)
	return nil
}

func (f *fakeProvenanceRepo) ListByResource(context.Context, string, string) ([]*entity.ProvenanceRecord, error) {
	return nil, nil
}

func newWebhookFixture(secret string) (*handlers.WebhookHandler, *fakeOutreachRepo, *fakeProvenanceRepo) {
	repo := &fakeOutreachRepo{}
	prov := &fakeProvenanceRepo{}
	reconciler := usecase.NewReconcileEventUseCase(repo, fakeLeadRepo{}, prov)
	return handlers.NewWebhookHandler(reconciler, secret), repo, prov
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(handler *handlers.WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	return rec
}

func TestWebhookSignatureVerification(t *testing.T) {
	secret := "test-webhook-secret"
	handler, _, _ := newWebhookFixture(secret)

	body, _ := json.Marshal(map[string]string{
		"event_type":      "message.delivered",
		"correlation_key": "<abc@omics-os.com>",
	})

	t.Run("Valid Signature", func(t *testing.T) {
		rec := postWebhook(handler, body, sign(body, secret))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Invalid Signature", func(t *testing.T) {
		rec := postWebhook(handler, body, "sha256=deadbeef")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Missing Signature", func(t *testing.T) {
		rec := postWebhook(handler, body, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestWebhookNoSecretSkipsVerification(t *testing.T) {
	handler, _, _ := newWebhookFixture("")
	body, _ := json.Marshal(map[string]string{"event_type": "message.delivered"})

	rec := postWebhook(handler, body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookAppliesDeliveredEvent(t *testing.T) {
	handler, repo, _ := newWebhookFixture("")

	attempt := entity.NewOutreachAttempt("lead-1", "transcripta_quillborne", "novice@example.com", "s", "b")
	attempt.Status = entity.OutreachSent
	attempt.CorrelationKey = "<abc@omics-os.com>"
	repo.attempt = attempt

	body, _ := json.Marshal(map[string]string{
		"event_type":      "message.delivered",
		"correlation_key": "<abc@omics-os.com>",
	})

	rec := postWebhook(handler, body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.OutreachDelivered, attempt.Status)

	var result usecase.ReconcileResult
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Applied)
}

func TestWebhookLegacyEventNamesNormalized(t *testing.T) {
	handler, repo, _ := newWebhookFixture("")

	attempt := entity.NewOutreachAttempt("lead-1", "p", "novice@example.com", "s", "b")
	attempt.Status = entity.OutreachSent
	attempt.CorrelationKey = "<legacy@omics-os.com>"
	repo.attempt = attempt

	// legacy field name and legacy type, message_id instead of correlation_key
	body, _ := json.Marshal(map[string]string{
		"type":       "email.delivered",
		"message_id": "<legacy@omics-os.com>",
	})

	rec := postWebhook(handler, body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.OutreachDelivered, attempt.Status)
}

func TestWebhookUnknownEventTypeIgnored(t *testing.T) {
	handler, _, _ := newWebhookFixture("")
	body, _ := json.Marshal(map[string]string{"event_type": "message.opened"})

	rec := postWebhook(handler, body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestWebhookUnmatchedEventReturns200(t *testing.T) {
	handler, _, prov := newWebhookFixture("")

	body, _ := json.Marshal(map[string]string{
		"event_type":      "message.bounced",
		"correlation_key": "<never-sent@omics-os.com>",
	})

	rec := postWebhook(handler, body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, prov.actions, "event_unreconciled")
}

func TestWebhookReplyWithAttachments(t *testing.T) {
	handler, repo, _ := newWebhookFixture("")

	attempt := entity.NewOutreachAttempt("lead-1", "p", "novice@example.com", "s", "b")
	attempt.Status = entity.OutreachDelivered
	attempt.CorrelationKey = "<abc@omics-os.com>"
	repo.attempt = attempt

	body, _ := json.Marshal(map[string]any{
		"event_type":      "message.received",
		"correlation_key": "<abc@omics-os.com>",
		"from":            "novice@example.com",
		"attachments":     []map[string]string{{"filename": "data.csv"}},
	})

	rec := postWebhook(handler, body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.OutreachReplied, attempt.Status)
	assert.True(t, attempt.NeedsReview)
}

func TestWebhookBadJSON(t *testing.T) {
	handler, _, _ := newWebhookFixture("")
	rec := postWebhook(handler, []byte("{not json"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
