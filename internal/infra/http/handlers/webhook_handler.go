package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/omics-os/leadengine/internal/usecase"
)

// WebhookHandler receives delivery/reply/bounce events from the messaging
// collaborator. Delivery is at-least-once; the reconciler absorbs replays
// and misses, so this handler answers 200 for everything it could parse.
type WebhookHandler struct {
	Reconciler *usecase.ReconcileEventUseCase
	Secret     string // optional HMAC secret
}

func NewWebhookHandler(reconciler *usecase.ReconcileEventUseCase, secret string) *WebhookHandler {
	return &WebhookHandler{Reconciler: reconciler, Secret: secret}
}

type webhookEvent struct {
	EventType      string `json:"event_type"`
	Type           string `json:"type"` // legacy field name
	Kind           string `json:"kind"`
	CorrelationKey string `json:"correlation_key"`
	MessageID      string `json:"message_id"`
	ThreadID       string `json:"thread_id"`
	From           string `json:"from"`
	Attachments    []struct {
		Filename string `json:"filename"`
	} `json:"attachments"`
	Payload map[string]any `json:"payload"`
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	if h.Secret != "" {
		if !verifySignature(body, r.Header.Get("X-Webhook-Signature"), h.Secret) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Bad JSON", http.StatusBadRequest)
		return
	}

	kind, ok := normalizeKind(event)
	if !ok {
		// unknown event types are acknowledged and dropped
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ignored"})
		return
	}

	correlationKey := event.CorrelationKey
	if correlationKey == "" {
		correlationKey = event.MessageID
	}

	result, err := h.Reconciler.Execute(r.Context(), usecase.InboundEvent{
		Kind:           kind,
		CorrelationKey: correlationKey,
		ThreadID:       event.ThreadID,
		From:           event.From,
		HasAttachments: len(event.Attachments) > 0,
		Payload:        event.Payload,
	})
	if err != nil {
		log.Printf("❌ [WEBHOOK] reconcile failed: %v", err)
		http.Error(w, "reconcile failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// normalizeKind maps both current and legacy event type names onto the
// reconciler's kinds.
func normalizeKind(event webhookEvent) (string, bool) {
	t := event.EventType
	if t == "" {
		t = event.Type
	}
	if t == "" {
		t = event.Kind
	}

	switch strings.ToLower(t) {
	case "message.delivered", "email.delivered", "email.sent", usecase.EventDelivered:
		return usecase.EventDelivered, true
	case "message.received", "email.replied", usecase.EventReplied:
		return usecase.EventReplied, true
	case "message.bounced", "email.bounced", "email.failed", usecase.EventBounced:
		return usecase.EventBounced, true
	}
	return "", false
}

func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}
