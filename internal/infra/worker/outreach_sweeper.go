package worker

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/omics-os/leadengine/internal/infra/queue"
)

type dispatchPublisher interface {
	PublishDispatch(ctx context.Context, payload queue.DispatchPayload) error
}

// OutreachSweeper re-publishes QUEUED attempts that never reached the
// dispatcher (broker hiccup, crash between insert and publish), and closes
// replied attempts old enough to be considered resolved so the
// one-active-attempt invariant stops blocking future outreach to that lead.
type OutreachSweeper struct {
	db           *sql.DB
	producer     dispatchPublisher
	staleWindow  time.Duration
	closeAfter   time.Duration
	tickInterval time.Duration
}

func NewOutreachSweeper(db *sql.DB, producer dispatchPublisher) *OutreachSweeper {
	return &OutreachSweeper{
		db:           db,
		producer:     producer,
		staleWindow:  10 * time.Minute,
		closeAfter:   90 * 24 * time.Hour,
		tickInterval: 1 * time.Minute,
	}
}

func (w *OutreachSweeper) Start(ctx context.Context) {
	log.Println("🕒 [SWEEPER] outreach sweeper started (10min stale window)")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ [SWEEPER] outreach sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OutreachSweeper) sweep(ctx context.Context) {
	w.republishStale(ctx)
	w.closeAgedReplied(ctx)
}

func (w *OutreachSweeper) republishStale(ctx context.Context) {
	// an attempt that already carries a correlation key may have reached the
	// relay before its status update was lost; republishing it would send
	// the recipient a duplicate email, so those are left for the operator
	query := `
		SELECT id, lead_id
		FROM outreach_attempts
		WHERE status = 'QUEUED'
		  AND correlation_key IS NULL
		  AND queued_at < NOW() - ($1 * INTERVAL '1 second')
	`

	rows, err := w.db.QueryContext(ctx, query, int(w.staleWindow.Seconds()))
	if err != nil {
		log.Printf("❌ [SWEEPER] stale attempt query failed: %v", err)
		return
	}
	defer rows.Close()

	republished := 0
	for rows.Next() {
		var attemptID, leadID string
		if err := rows.Scan(&attemptID, &leadID); err != nil {
			log.Printf("⚠️ [SWEEPER] scan failed: %v", err)
			continue
		}

		payload := queue.DispatchPayload{AttemptID: attemptID, LeadID: leadID}
		if err := w.producer.PublishDispatch(ctx, payload); err != nil {
			log.Printf("❌ [SWEEPER] republish failed for attempt %s: %v", attemptID, err)
			continue
		}
		republished++
	}

	if republished > 0 {
		log.Printf("✅ [SWEEPER] %d stale attempt(s) republished", republished)
	}
}

func (w *OutreachSweeper) closeAgedReplied(ctx context.Context) {
	query := `
		UPDATE outreach_attempts
		SET status = 'CLOSED', updated_at = NOW()
		WHERE status = 'REPLIED'
		  AND replied_at < NOW() - ($1 * INTERVAL '1 second')
	`

	res, err := w.db.ExecContext(ctx, query, int(w.closeAfter.Seconds()))
	if err != nil {
		log.Printf("❌ [SWEEPER] aged reply close failed: %v", err)
		return
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Printf("✅ [SWEEPER] %d aged replied attempt(s) closed", n)
	}
}
