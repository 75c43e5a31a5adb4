package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quantum-grit/your-sofia/signal-service/internal/middleware"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/quantum-grit/your-sofia/signal-service/pkg/utils"
)

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssignmentRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	assignment, err := h.assignmentService.CreateAssignment(r.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to create assignment")
		return
	}

	writeCreated(w, assignment)
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", utils.DefaultPageLimit)

	filter := models.AssignmentFilter{AssignedTo: r.URL.Query().Get("assigned_to")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseAssignmentStatus(raw)
		if err != nil {
			h.handleServiceError(w, err, "Failed to list assignments")
			return
		}
		filter.Status = status
	}

	response, err := h.assignmentService.ListAssignments(r.Context(), filter, page, limit)
	if err != nil {
		h.handleServiceError(w, err, "Failed to list assignments")
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := assignmentIDParam(w, r)
	if !ok {
		return
	}

	assignment, err := h.assignmentService.GetAssignment(r.Context(), assignmentID)
	if err != nil {
		h.handleServiceError(w, err, "Failed to get assignment")
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) UpdateAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := assignmentIDParam(w, r)
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	assignment, err := h.assignmentService.UpdateStatus(r.Context(), actor, assignmentID, &req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to update assignment status")
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) GetAssignmentProgress(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := assignmentIDParam(w, r)
	if !ok {
		return
	}

	progress, err := h.progressService.GetProgress(r.Context(), assignmentID)
	if err != nil {
		h.handleServiceError(w, err, "Failed to compute assignment progress")
		return
	}

	writeSuccess(w, progress)
}

func assignmentIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	assignmentID := chi.URLParam(r, "id")
	if !utils.ValidateUUID(assignmentID) {
		writeError(w, http.StatusNotFound, models.ErrAssignmentNotFound.Error())
		return "", false
	}
	return assignmentID, true
}
