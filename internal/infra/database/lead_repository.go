package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/omics-os/leadengine/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// Upsert inserts by natural key or refreshes the existing row. COALESCE keeps
// the latest non-null contact fields; the stage only moves NEW -> ENRICHED
// here, human-driven stages are never demoted by re-ingestion.
func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	signals, err := json.Marshal(lead.Signals)
	if err != nil {
		return fmt.Errorf("failed to encode signals: %w", err)
	}

	query := `
		INSERT INTO leads (
			id, natural_key, source, repo, issue_number, issue_url, title,
			labels, origin_created_at, user_login, profile_url, email, website,
			signals, score, stage, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		ON CONFLICT (natural_key)
		DO UPDATE SET
			title             = EXCLUDED.title,
			labels            = EXCLUDED.labels,
			origin_created_at = COALESCE(EXCLUDED.origin_created_at, leads.origin_created_at),
			email             = COALESCE(NULLIF(EXCLUDED.email, ''), leads.email),
			website           = COALESCE(NULLIF(EXCLUDED.website, ''), leads.website),
			signals           = EXCLUDED.signals,
			score             = EXCLUDED.score,
			stage             = CASE
				WHEN leads.stage = 'NEW' AND EXCLUDED.stage = 'ENRICHED' THEN 'ENRICHED'
				ELSE leads.stage
			END,
			updated_at        = NOW()
		RETURNING id, stage, created_at, updated_at
	`

	err = r.DB.QueryRowContext(ctx, query,
		lead.ID,
		lead.NaturalKey,
		lead.Source,
		nullString(lead.Repo),
		lead.IssueNumber,
		nullString(lead.IssueURL),
		lead.Title,
		pq.Array(lead.Labels),
		lead.OriginCreatedAt,
		lead.UserLogin,
		lead.ProfileURL,
		nullString(lead.Email),
		nullString(lead.Website),
		signals,
		lead.Score,
		lead.Stage,
	).Scan(&lead.ID, &lead.Stage, &lead.CreatedAt, &lead.UpdatedAt)

	return err
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, selectLead+` WHERE id = $1`, id)
	return scanLead(row)
}

func (r *LeadRepository) ListByStage(ctx context.Context, stage string, limit int) ([]*entity.Lead, error) {
	if limit <= 0 {
		limit = 100
	}

	query := selectLead + ` WHERE ($1 = '' OR stage = $1) ORDER BY score DESC, created_at ASC LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, stage, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateStage is a compare-and-set: the UPDATE only lands when the stage is
// still the one the transition was validated against, so concurrent writers
// (reconciler, dispatcher, operator) can never demote or resurrect a lead.
// On a lost race the row is re-read and re-validated.
func (r *LeadRepository) UpdateStage(ctx context.Context, id, stage string) error {
	if !entity.IsLeadStage(stage) {
		return entity.ErrInvalidStage
	}

	for try := 0; try < 3; try++ {
		lead, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !entity.CanAdvanceStage(lead.Stage, stage) {
			return fmt.Errorf("%w: %s -> %s", entity.ErrInvalidStage, lead.Stage, stage)
		}

		res, err := r.DB.ExecContext(ctx,
			`UPDATE leads SET stage = $1, updated_at = NOW() WHERE id = $2 AND stage = $3`,
			stage, id, lead.Stage)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		// another writer moved the stage between read and write
	}
	return fmt.Errorf("stage update contention for lead %s", id)
}

const selectLead = `
	SELECT id, natural_key, source, repo, issue_number, issue_url, title,
	       labels, origin_created_at, user_login, profile_url, email, website,
	       signals, score, stage, created_at, updated_at
	FROM leads`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var lead entity.Lead
	var repo, issueURL, email, website sql.NullString
	var signals []byte

	err := row.Scan(
		&lead.ID, &lead.NaturalKey, &lead.Source, &repo, &lead.IssueNumber,
		&issueURL, &lead.Title, pq.Array(&lead.Labels), &lead.OriginCreatedAt,
		&lead.UserLogin, &lead.ProfileURL, &email, &website,
		&signals, &lead.Score, &lead.Stage, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}

	lead.Repo = repo.String
	lead.IssueURL = issueURL.String
	lead.Email = email.String
	lead.Website = website.String
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &lead.Signals); err != nil {
			return nil, fmt.Errorf("corrupt signals payload for lead %s: %w", lead.ID, err)
		}
	}
	return &lead, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
