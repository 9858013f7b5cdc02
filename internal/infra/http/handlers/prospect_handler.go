package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/omics-os/leadengine/internal/usecase"
)

// ProspectHandler triggers one prospecting run over the configured or
// request-supplied sources.
type ProspectHandler struct {
	Ingest         *usecase.IngestCandidatesUseCase
	DefaultSources []string
	DefaultMax     int
	Threshold      float64
}

func NewProspectHandler(ingest *usecase.IngestCandidatesUseCase, defaultSources []string, defaultMax int, threshold float64) *ProspectHandler {
	return &ProspectHandler{
		Ingest:         ingest,
		DefaultSources: defaultSources,
		DefaultMax:     defaultMax,
		Threshold:      threshold,
	}
}

type prospectRequest struct {
	Sources           []string `json:"sources"`
	MaxItemsPerSource int      `json:"max_items_per_source"`
	ScoreThreshold    float64  `json:"score_threshold"`
}

func (h *ProspectHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req prospectRequest
	if r.Body != nil {
		// an empty body means "use the configured defaults"
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if len(req.Sources) == 0 {
		req.Sources = h.DefaultSources
	}
	if req.MaxItemsPerSource <= 0 {
		req.MaxItemsPerSource = h.DefaultMax
	}
	if req.ScoreThreshold <= 0 {
		req.ScoreThreshold = h.Threshold
	}

	report, err := h.Ingest.Execute(r.Context(), usecase.IngestInput{
		Sources:           req.Sources,
		MaxItemsPerSource: req.MaxItemsPerSource,
		ScoreThreshold:    req.ScoreThreshold,
	})
	if err != nil {
		if usecase.IsDomainError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("❌ [PROSPECT] run failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}
