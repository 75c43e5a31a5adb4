package httpd

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
	"github.com/quantum-grit/your-sofia/signal-service/internal/service"
	"github.com/quantum-grit/your-sofia/signal-service/pkg/utils"
	"github.com/rs/zerolog"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	signalService     service.SignalService
	assignmentService service.AssignmentService
	containerService  service.ContainerService
	progressService   service.ProgressService
	db                Pinger
	maxUploadSize     int64
	logger            zerolog.Logger
}

func NewHandler(
	signalService service.SignalService,
	assignmentService service.AssignmentService,
	containerService service.ContainerService,
	progressService service.ProgressService,
	db Pinger,
	maxUploadSize int64,
	logger zerolog.Logger,
) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = 10 << 20
	}
	return &Handler{
		signalService:     signalService,
		assignmentService: assignmentService,
		containerService:  containerService,
		progressService:   progressService,
		db:                db,
		maxUploadSize:     maxUploadSize,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Get("/catalog/container-states", h.GetCatalog)

		api.Route("/signals", func(r chi.Router) {
			r.Post("/", h.CreateSignal)
			r.Get("/", h.ListSignals)
			r.Get("/{id}", h.GetSignal)
			r.Patch("/{id}", h.UpdateSignal)
			r.Post("/{id}/photos", h.UploadPhoto)
			r.Delete("/{id}/photos/{photoId}", h.RemovePhoto)
			r.Put("/{id}/status", h.UpdateSignalStatus)
			r.Put("/{id}/admin-notes", h.SetAdminNotes)
		})

		api.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CreateAssignment)
			r.Get("/", h.ListAssignments)
			r.Get("/{id}", h.GetAssignment)
			r.Put("/{id}/status", h.UpdateAssignmentStatus)
			r.Get("/{id}/progress", h.GetAssignmentProgress)
		})

		api.Route("/containers", func(r chi.Router) {
			r.Get("/", h.ListContainers)
			r.Get("/{id}/states", h.GetContainerStates)
			r.Put("/{id}/states", h.UpdateContainerStates)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "signal-service",
		"timestamp": time.Now().UTC(),
	}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("Database ping failed")
			response["status"] = "degraded"
			response["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		response["database"] = "ok"
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, models.Catalog())
}

// handleServiceError maps domain errors to HTTP statuses; anything unknown is a 500.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error, action string) {
	var (
		unknownState      *models.UnknownStateError
		validation        *models.ValidationError
		invalidAssignment *models.InvalidAssignmentError
		notPermitted      *models.EditNotPermittedError
		photoNotFound     *models.PhotoNotFoundError
		invalidTransition *models.InvalidTransitionError
	)

	switch {
	case errors.As(err, &unknownState), errors.As(err, &validation), errors.As(err, &invalidAssignment):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notPermitted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrSignalNotFound),
		errors.Is(err, models.ErrAssignmentNotFound),
		errors.Is(err, models.ErrContainerNotFound),
		errors.As(err, &photoNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Err(err).Msg(action)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	utils.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeEnvelope(w, http.StatusOK, data)
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeEnvelope(w, http.StatusCreated, data)
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
