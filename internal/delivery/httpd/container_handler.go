package httpd

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quantum-grit/your-sofia/signal-service/internal/middleware"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/quantum-grit/your-sofia/signal-service/pkg/utils"
)

func (h *Handler) ListContainers(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", utils.DefaultPageLimit)

	response, err := h.containerService.ListContainers(r.Context(), page, limit)
	if err != nil {
		h.handleServiceError(w, err, "Failed to list containers")
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetContainerStates(w http.ResponseWriter, r *http.Request) {
	containerID := strings.TrimSpace(chi.URLParam(r, "id"))

	container, err := h.containerService.GetContainer(r.Context(), containerID)
	if err != nil {
		h.handleServiceError(w, err, "Failed to get container")
		return
	}

	writeSuccess(w, container)
}

func (h *Handler) UpdateContainerStates(w http.ResponseWriter, r *http.Request) {
	containerID := strings.TrimSpace(chi.URLParam(r, "id"))
	if containerID == "" {
		writeError(w, http.StatusBadRequest, "Container ID is required")
		return
	}

	var req models.UpdateContainerStatesRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	container, err := h.containerService.UpdateStates(r.Context(), actor, containerID, &req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to update container states")
		return
	}

	writeSuccess(w, container)
}
