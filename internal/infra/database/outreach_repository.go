package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/omics-os/leadengine/internal/entity"
)

type OutreachRepository struct {
	DB *sql.DB
}

func NewOutreachRepository(db *sql.DB) *OutreachRepository {
	return &OutreachRepository{DB: db}
}

// Create inserts a new attempt. The partial unique index on (lead_id) WHERE
// status NOT IN (terminal states) enforces at-most-one-active-attempt at the
// database, so concurrent creates cannot both win.
func (r *OutreachRepository) Create(ctx context.Context, a *entity.OutreachAttempt) error {
	query := `
		INSERT INTO outreach_attempts (
			id, lead_id, persona_id, recipient, subject, body,
			correlation_key, thread_id, status, requires_approval, approval_reason,
			approved_by, needs_review, failure_reason, retries,
			queued_at, approved_at, sent_at, delivered_at, replied_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.DB.ExecContext(ctx, query,
		a.ID, a.LeadID, a.PersonaID, a.Recipient, a.Subject, a.Body,
		nullString(a.CorrelationKey), nullString(a.ThreadID), a.Status,
		a.RequiresApproval, nullString(a.ApprovalReason), nullString(a.ApprovedBy),
		a.NeedsReview, nullString(a.FailureReason), a.Retries,
		a.QueuedAt, a.ApprovedAt, a.SentAt, a.DeliveredAt, a.RepliedAt,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entity.ErrActiveAttemptExists
		}
		return err
	}
	return nil
}

func (r *OutreachRepository) Update(ctx context.Context, a *entity.OutreachAttempt) error {
	query := `
		UPDATE outreach_attempts SET
			correlation_key   = $2,
			thread_id         = $3,
			status            = $4,
			requires_approval = $5,
			approval_reason   = $6,
			approved_by       = $7,
			needs_review      = $8,
			failure_reason    = $9,
			retries           = $10,
			queued_at         = $11,
			approved_at       = $12,
			sent_at           = $13,
			delivered_at      = $14,
			replied_at        = $15,
			updated_at        = NOW()
		WHERE id = $1
	`

	res, err := r.DB.ExecContext(ctx, query,
		a.ID, nullString(a.CorrelationKey), nullString(a.ThreadID), a.Status,
		a.RequiresApproval, nullString(a.ApprovalReason), nullString(a.ApprovedBy),
		a.NeedsReview, nullString(a.FailureReason), a.Retries,
		a.QueuedAt, a.ApprovedAt, a.SentAt, a.DeliveredAt, a.RepliedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrAttemptNotFound
	}
	return nil
}

func (r *OutreachRepository) FindByID(ctx context.Context, id string) (*entity.OutreachAttempt, error) {
	return r.findOne(ctx, ` WHERE id = $1`, id)
}

func (r *OutreachRepository) FindByCorrelationKey(ctx context.Context, key string) (*entity.OutreachAttempt, error) {
	return r.findOne(ctx, ` WHERE correlation_key = $1`, key)
}

func (r *OutreachRepository) FindByThreadID(ctx context.Context, threadID string) (*entity.OutreachAttempt, error) {
	return r.findOne(ctx, ` WHERE thread_id = $1 ORDER BY created_at DESC LIMIT 1`, threadID)
}

func (r *OutreachRepository) FindLastByRecipient(ctx context.Context, recipient string) (*entity.OutreachAttempt, error) {
	return r.findOne(ctx, ` WHERE recipient = $1 ORDER BY created_at DESC LIMIT 1`, recipient)
}

func (r *OutreachRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.OutreachAttempt, error) {
	if limit <= 0 {
		limit = 100
	}

	query := selectOutreach + ` WHERE ($1 = '' OR status = $1) ORDER BY created_at ASC LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*entity.OutreachAttempt
	for rows.Next() {
		a, err := scanOutreach(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *OutreachRepository) findOne(ctx context.Context, where string, args ...any) (*entity.OutreachAttempt, error) {
	row := r.DB.QueryRowContext(ctx, selectOutreach+where, args...)
	return scanOutreach(row)
}

const selectOutreach = `
	SELECT id, lead_id, persona_id, recipient, subject, body,
	       correlation_key, thread_id, status, requires_approval, approval_reason,
	       approved_by, needs_review, failure_reason, retries,
	       queued_at, approved_at, sent_at, delivered_at, replied_at,
	       created_at, updated_at
	FROM outreach_attempts`

func scanOutreach(row rowScanner) (*entity.OutreachAttempt, error) {
	var a entity.OutreachAttempt
	var corrKey, threadID, approvalReason, approvedBy, failureReason sql.NullString

	err := row.Scan(
		&a.ID, &a.LeadID, &a.PersonaID, &a.Recipient, &a.Subject, &a.Body,
		&corrKey, &threadID, &a.Status, &a.RequiresApproval, &approvalReason,
		&approvedBy, &a.NeedsReview, &failureReason, &a.Retries,
		&a.QueuedAt, &a.ApprovedAt, &a.SentAt, &a.DeliveredAt, &a.RepliedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	a.CorrelationKey = corrKey.String
	a.ThreadID = threadID.String
	a.ApprovalReason = approvalReason.String
	a.ApprovedBy = approvedBy.String
	a.FailureReason = failureReason.String
	return &a, nil
}
