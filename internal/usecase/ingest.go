package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/infra/http/middleware"
	"github.com/omics-os/leadengine/internal/scoring"
)

const ingestActor = "ingestion"

type IngestInput struct {
	Sources           []string
	MaxItemsPerSource int
	ScoreThreshold    float64
}

type IngestReport struct {
	Fetched   int      `json:"fetched"`
	Upserted  int      `json:"upserted"`
	Qualified int      `json:"qualified"`
	Rejected  int      `json:"rejected"`
	Errors    []string `json:"errors,omitempty"`
}

type IngestCandidatesUseCase struct {
	Discovery   Discovery
	LeadRepo    entity.LeadRepositoryInterface
	Provenance  entity.ProvenanceRepositoryInterface
	Concurrency int

	locks *keyLock
	once  sync.Once
}

func NewIngestCandidatesUseCase(
	discovery Discovery,
	leadRepo entity.LeadRepositoryInterface,
	provenance entity.ProvenanceRepositoryInterface,
	concurrency int,
) *IngestCandidatesUseCase {
	if concurrency < 1 {
		concurrency = 1
	}
	return &IngestCandidatesUseCase{
		Discovery:   discovery,
		LeadRepo:    leadRepo,
		Provenance:  provenance,
		Concurrency: concurrency,
		locks:       newKeyLock(),
	}
}

// Execute runs one prospecting cycle over the given sources. Sources are
// fetched concurrently up to the configured bound; per-record failures are
// reported in the result and never abort the run. Cancellation is
// cooperative: already-persisted leads stay persisted.
func (uc *IngestCandidatesUseCase) Execute(ctx context.Context, input IngestInput) (*IngestReport, error) {
	uc.once.Do(func() {
		if uc.locks == nil {
			uc.locks = newKeyLock()
		}
	})

	if len(input.Sources) == 0 {
		return nil, &DomainError{Code: "NO_SOURCES", Message: "at least one source is required"}
	}
	if input.ScoreThreshold <= 0 {
		input.ScoreThreshold = 0.6
	}

	report := &IngestReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.Concurrency)

	for _, source := range input.Sources {
		source := source
		g.Go(func() error {
			candidates, err := uc.Discovery.FetchCandidates(gctx, source, input.MaxItemsPerSource)
			if err != nil {
				mu.Lock()
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", source, err))
				mu.Unlock()
				log.Printf("❌ [INGEST] fetch failed for %s: %v", source, err)
				// one bad source never kills the run
				return nil
			}

			// last-write-wins dedupe within the batch, upsert once per key
			ordered := make([]string, 0, len(candidates))
			byKey := make(map[string]entity.Candidate, len(candidates))
			for _, c := range candidates {
				if _, seen := byKey[c.NaturalKey]; !seen {
					ordered = append(ordered, c.NaturalKey)
				}
				byKey[c.NaturalKey] = c
			}

			mu.Lock()
			report.Fetched += len(candidates)
			mu.Unlock()

			for _, key := range ordered {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				uc.ingestOne(gctx, byKey[key], input.ScoreThreshold, report, &mu)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (uc *IngestCandidatesUseCase) ingestOne(ctx context.Context, c entity.Candidate, threshold float64, report *IngestReport, mu *sync.Mutex) {
	signals, err := scoring.ExtractSignals(c)
	if err != nil {
		mu.Lock()
		report.Rejected++
		report.Errors = append(report.Errors, fmt.Sprintf("%s/%s: %v", c.Source, c.UserLogin, err))
		mu.Unlock()
		uc.logProvenance(ctx, "candidate_rejected", "", map[string]any{
			"source": c.Source, "reason": err.Error(),
		})
		return
	}

	score := scoring.Score(signals)
	qualified := scoring.Qualifies(signals, c.Email, threshold)

	lead := &entity.Lead{
		NaturalKey:      c.NaturalKey,
		Source:          c.Source,
		Repo:            c.Repo,
		IssueNumber:     c.IssueNumber,
		IssueURL:        c.IssueURL,
		Title:           c.Title,
		Labels:          c.Labels,
		OriginCreatedAt: c.CreatedAt,
		UserLogin:       c.UserLogin,
		ProfileURL:      c.ProfileURL,
		Email:           c.Email,
		Website:         c.Website,
		Signals:         signals,
		Score:           score,
		Stage:           entity.StageNew,
	}
	if qualified {
		lead.Stage = entity.StageEnriched
	}

	// single-writer discipline per natural key
	unlock := uc.locks.Lock(c.NaturalKey)
	err = uc.LeadRepo.Upsert(ctx, lead)
	unlock()

	if err != nil {
		mu.Lock()
		report.Errors = append(report.Errors, fmt.Sprintf("upsert %s: %v", c.NaturalKey, err))
		mu.Unlock()
		log.Printf("❌ [INGEST] upsert failed for %s: %v", c.NaturalKey, err)
		return
	}

	mu.Lock()
	report.Upserted++
	if qualified {
		report.Qualified++
	}
	mu.Unlock()

	middleware.RecordLeadIngested(c.Source, qualified)

	uc.logProvenance(ctx, "lead_upserted", lead.ID, map[string]any{
		"natural_key": c.NaturalKey,
		"score":       score,
		"qualified":   qualified,
	})
}

func (uc *IngestCandidatesUseCase) logProvenance(ctx context.Context, action, resourceID string, details map[string]any) {
	rec := entity.NewProvenanceRecord(ingestActor, action, "lead", resourceID, details)
	if err := uc.Provenance.Append(ctx, rec); err != nil {
		// provenance must never break the primary workflow
		log.Printf("⚠️ [INGEST] provenance write failed: %v", err)
	}
}
