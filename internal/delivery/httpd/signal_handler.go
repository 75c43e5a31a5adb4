package httpd

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quantum-grit/your-sofia/signal-service/internal/middleware"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/quantum-grit/your-sofia/signal-service/pkg/utils"
)

func (h *Handler) CreateSignal(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSignalRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	signal, err := h.signalService.CreateSignal(r.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to create signal")
		return
	}

	writeCreated(w, signal)
}

func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", utils.DefaultPageLimit)

	filter := models.SignalFilter{ReporterID: r.URL.Query().Get("reporter_id")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseSignalStatus(raw)
		if err != nil {
			h.handleServiceError(w, err, "Failed to list signals")
			return
		}
		filter.Status = status
	}

	response, err := h.signalService.ListSignals(r.Context(), filter, page, limit)
	if err != nil {
		h.handleServiceError(w, err, "Failed to list signals")
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetSignal(w http.ResponseWriter, r *http.Request) {
	signalID, ok := signalIDParam(w, r)
	if !ok {
		return
	}

	signal, err := h.signalService.GetSignal(r.Context(), signalID)
	if err != nil {
		h.handleServiceError(w, err, "Failed to get signal")
		return
	}

	writeSuccess(w, signal)
}

func (h *Handler) UpdateSignal(w http.ResponseWriter, r *http.Request) {
	signalID, ok := signalIDParam(w, r)
	if !ok {
		return
	}

	var req models.UpdateSignalRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	signal, err := h.signalService.UpdateSignal(r.Context(), actor, signalID, &req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to update signal")
		return
	}

	writeSuccess(w, signal)
}

func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	signalID, ok := signalIDParam(w, r)
	if !ok {
		return
	}

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "Content-Type must be multipart/form-data")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Photo is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "File is empty")
		return
	}
	if int64(len(content)) > h.maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "Photo is too large")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}

	actor := middleware.ActorFromContext(r.Context())
	signal, err := h.signalService.AddPhoto(r.Context(), actor, signalID, models.PhotoPayload{
		LocalKey:    r.FormValue("local_key"),
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Content:     content,
	})
	if err != nil {
		h.handleServiceError(w, err, "Failed to upload photo")
		return
	}

	writeCreated(w, signal)
}

func (h *Handler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	signalID, ok := signalIDParam(w, r)
	if !ok {
		return
	}
	photoID := chi.URLParam(r, "photoId")

	actor := middleware.ActorFromContext(r.Context())
	signal, err := h.signalService.RemovePhoto(r.Context(), actor, signalID, photoID)
	if err != nil {
		h.handleServiceError(w, err, "Failed to remove photo")
		return
	}

	writeSuccess(w, signal)
}

func (h *Handler) UpdateSignalStatus(w http.ResponseWriter, r *http.Request) {
	signalID, ok := signalIDParam(w, r)
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	signal, err := h.signalService.UpdateStatus(r.Context(), actor, signalID, &req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to update signal status")
		return
	}

	writeSuccess(w, signal)
}

func (h *Handler) SetAdminNotes(w http.ResponseWriter, r *http.Request) {
	signalID, ok := signalIDParam(w, r)
	if !ok {
		return
	}

	var req models.AdminNotesRequest
	if err := utils.ReadJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	signal, err := h.signalService.SetAdminNotes(r.Context(), actor, signalID, &req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to set admin notes")
		return
	}

	writeSuccess(w, signal)
}

// signalIDParam answers 404 for ids that cannot name a stored signal.
func signalIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	signalID := chi.URLParam(r, "id")
	if !utils.ValidateUUID(signalID) {
		writeError(w, http.StatusNotFound, models.ErrSignalNotFound.Error())
		return "", false
	}
	return signalID, true
}
