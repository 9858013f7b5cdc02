package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProvenanceRecord is an append-only audit entry. Records are never updated
// or deleted; timestamp order is the canonical trail.
type ProvenanceRecord struct {
	ID           string         `json:"id"`
	Actor        string         `json:"actor"` // operator email or component name
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"` // "lead" | "outreach"
	ResourceID   string         `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func NewProvenanceRecord(actor, action, resourceType, resourceID string, details map[string]any) *ProvenanceRecord {
	return &ProvenanceRecord{
		ID:           uuid.New().String(),
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		CreatedAt:    time.Now(),
	}
}

type ProvenanceRepositoryInterface interface {
	Append(ctx context.Context, rec *ProvenanceRecord) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]*ProvenanceRecord, error)
}
