package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/omics-os/leadengine/internal/entity"
)

// ProvenanceRepository is strictly append-only: no update or delete paths
// exist on purpose.
type ProvenanceRepository struct {
	DB *sql.DB
}

func NewProvenanceRepository(db *sql.DB) *ProvenanceRepository {
	return &ProvenanceRepository{DB: db}
}

func (r *ProvenanceRepository) Append(ctx context.Context, rec *entity.ProvenanceRecord) error {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("failed to encode provenance details: %w", err)
	}

	query := `
		INSERT INTO provenance (id, actor, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID, rec.Actor, rec.Action,
		nullString(rec.ResourceType), nullString(rec.ResourceID),
		details, rec.CreatedAt,
	)
	return err
}

func (r *ProvenanceRepository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]*entity.ProvenanceRecord, error) {
	query := `
		SELECT id, actor, action, resource_type, resource_id, details, created_at
		FROM provenance
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*entity.ProvenanceRecord
	for rows.Next() {
		var rec entity.ProvenanceRecord
		var rtype, rid sql.NullString
		var details []byte

		if err := rows.Scan(&rec.ID, &rec.Actor, &rec.Action, &rtype, &rid, &details, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ResourceType = rtype.String
		rec.ResourceID = rid.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.Details); err != nil {
				return nil, fmt.Errorf("corrupt provenance details for %s: %w", rec.ID, err)
			}
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
