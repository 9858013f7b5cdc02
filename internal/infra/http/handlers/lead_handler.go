package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/omics-os/leadengine/internal/entity"
)

type LeadHandler struct {
	LeadRepo   entity.LeadRepositoryInterface
	Provenance entity.ProvenanceRepositoryInterface
}

func NewLeadHandler(leadRepo entity.LeadRepositoryInterface, provenance entity.ProvenanceRepositoryInterface) *LeadHandler {
	return &LeadHandler{LeadRepo: leadRepo, Provenance: provenance}
}

// HandleList returns leads, optionally filtered by stage, ordered by score.
func (h *LeadHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	stage := strings.ToUpper(r.URL.Query().Get("stage"))
	if stage != "" && !entity.IsLeadStage(stage) {
		writeError(w, http.StatusBadRequest, "unknown stage: "+stage)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	leads, err := h.LeadRepo.ListByStage(r.Context(), stage, limit)
	if err != nil {
		log.Printf("❌ [LEADS] list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

func (h *LeadHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	lead, err := h.LeadRepo.FindByID(r.Context(), chi.URLParam(r, "leadId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

type updateStageRequest struct {
	Stage string `json:"stage"`
	Actor string `json:"actor"`
}

// HandleUpdateStage is the human-selection surface: SELECTED and
// DISQUALIFIED come through here.
func (h *LeadHandler) HandleUpdateStage(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadId")

	var req updateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad JSON")
		return
	}
	req.Stage = strings.ToUpper(req.Stage)

	lead, err := h.LeadRepo.FindByID(r.Context(), leadID)
	if err != nil {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	oldStage := lead.Stage

	if err := h.LeadRepo.UpdateStage(r.Context(), leadID, req.Stage); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = "operator"
	}
	rec := entity.NewProvenanceRecord(actor, "lead_stage_changed", "lead", leadID, map[string]any{
		"old_stage": oldStage,
		"new_stage": req.Stage,
	})
	if err := h.Provenance.Append(r.Context(), rec); err != nil {
		log.Printf("⚠️ [LEADS] provenance write failed: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lead_id":   leadID,
		"old_stage": oldStage,
		"new_stage": req.Stage,
	})
}

// HandleExport streams all leads as CSV for the operator.
func (h *LeadHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	leads, err := h.LeadRepo.ListByStage(r.Context(), "", 10000)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export leads")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"id", "natural_key", "source", "repo", "user_login", "email", "score", "stage", "created_at"})
	for _, l := range leads {
		cw.Write([]string{
			l.ID, l.NaturalKey, l.Source, l.Repo, l.UserLogin, l.Email,
			fmt.Sprintf("%.2f", l.Score), l.Stage, l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// HandleProvenance returns the audit trail of one resource.
func (h *LeadHandler) HandleProvenance(w http.ResponseWriter, r *http.Request) {
	resourceType := chi.URLParam(r, "resourceType")
	resourceID := chi.URLParam(r, "resourceId")

	records, err := h.Provenance.ListByResource(r.Context(), resourceType, resourceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query provenance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
