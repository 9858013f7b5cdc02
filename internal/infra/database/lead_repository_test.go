package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/infra/database"
)

var leadColumns = []string{
	"id", "natural_key", "source", "repo", "issue_number", "issue_url", "title",
	"labels", "origin_created_at", "user_login", "profile_url", "email", "website",
	"signals", "score", "stage", "created_at", "updated_at",
}

func leadRow(id, stage string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(leadColumns).AddRow(
		id, "https://github.com/scverse/scanpy/issues/1", "github-issues",
		"scverse/scanpy", 1, "https://github.com/scverse/scanpy/issues/1",
		"help with clustering", []byte("{}"), nil, "novice-dev",
		"https://github.com/novice-dev", "novice@example.com", "",
		[]byte("{}"), 0.8, stage, now, now,
	)
}

func newLeadRepo(t *testing.T) (*database.LeadRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewLeadRepository(db), mock
}

func TestUpdateStageGuardsTheWrite(t *testing.T) {
	repo, mock := newLeadRepo(t)

	mock.ExpectQuery(`FROM leads WHERE id = \$1`).
		WithArgs("lead-1").
		WillReturnRows(leadRow("lead-1", entity.StageSelected))
	// the UPDATE must only land while the stage is still the one validated
	mock.ExpectExec(`UPDATE leads SET stage = \$1, updated_at = NOW\(\) WHERE id = \$2 AND stage = \$3`).
		WithArgs(entity.StageEmailed, "lead-1", entity.StageSelected).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStage(context.Background(), "lead-1", entity.StageEmailed)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStageLostRaceRevalidates(t *testing.T) {
	repo, mock := newLeadRepo(t)

	// validated against SELECTED, but the reconciler moves the lead to
	// RESPONDED between read and write, so the guarded UPDATE hits no row
	mock.ExpectQuery(`FROM leads WHERE id = \$1`).
		WithArgs("lead-1").
		WillReturnRows(leadRow("lead-1", entity.StageSelected))
	mock.ExpectExec(`UPDATE leads SET stage = \$1, updated_at = NOW\(\) WHERE id = \$2 AND stage = \$3`).
		WithArgs(entity.StageEmailed, "lead-1", entity.StageSelected).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// the re-read sees RESPONDED; EMAILED would be a demotion and must fail
	mock.ExpectQuery(`FROM leads WHERE id = \$1`).
		WithArgs("lead-1").
		WillReturnRows(leadRow("lead-1", entity.StageResponded))

	err := repo.UpdateStage(context.Background(), "lead-1", entity.StageEmailed)
	assert.ErrorIs(t, err, entity.ErrInvalidStage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStageRejectsInvalidTransitionWithoutWriting(t *testing.T) {
	repo, mock := newLeadRepo(t)

	mock.ExpectQuery(`FROM leads WHERE id = \$1`).
		WithArgs("lead-1").
		WillReturnRows(leadRow("lead-1", entity.StageDisqualified))

	err := repo.UpdateStage(context.Background(), "lead-1", entity.StageEnriched)
	assert.ErrorIs(t, err, entity.ErrInvalidStage)
	// no UPDATE was expected; a write here would resurrect the lead
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStageRejectsUnknownStage(t *testing.T) {
	repo, mock := newLeadRepo(t)

	err := repo.UpdateStage(context.Background(), "lead-1", "ARCHIVED")
	assert.ErrorIs(t, err, entity.ErrInvalidStage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
