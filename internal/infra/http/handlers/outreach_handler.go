package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/omics-os/leadengine/internal/entity"
	"github.com/omics-os/leadengine/internal/usecase"
)

type OutreachHandler struct {
	Coordinator *usecase.OutreachCoordinator
	Repo        entity.OutreachRepositoryInterface
}

func NewOutreachHandler(coordinator *usecase.OutreachCoordinator, repo entity.OutreachRepositoryInterface) *OutreachHandler {
	return &OutreachHandler{Coordinator: coordinator, Repo: repo}
}

func (h *OutreachHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateOutreachInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Bad JSON")
		return
	}

	attempt, err := h.Coordinator.Create(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

type approveRequest struct {
	Approver string `json:"approver"`
}

func (h *OutreachHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad JSON")
		return
	}
	if req.Approver == "" {
		writeError(w, http.StatusBadRequest, "approver is required")
		return
	}

	attempt, err := h.Coordinator.Approve(r.Context(), chi.URLParam(r, "attemptId"), req.Approver)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

type cancelRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func (h *OutreachHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad JSON")
		return
	}

	attempt, err := h.Coordinator.Cancel(r.Context(), chi.URLParam(r, "attemptId"), req.Reason, req.Actor)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

type closeRequest struct {
	Actor string `json:"actor"`
}

func (h *OutreachHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad JSON")
		return
	}

	attempt, err := h.Coordinator.Close(r.Context(), chi.URLParam(r, "attemptId"), req.Actor)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *OutreachHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(r.URL.Query().Get("status"))

	attempts, err := h.Repo.ListByStatus(r.Context(), status, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list outreach attempts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts, "count": len(attempts)})
}

func (h *OutreachHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.Repo.FindByID(r.Context(), chi.URLParam(r, "attemptId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "outreach attempt not found")
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func writeUseCaseError(w http.ResponseWriter, err error) {
	if usecase.IsDomainError(err) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
