package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"lprwatch/backend/services/lpr-service/internal/models"
	"lprwatch/backend/services/lpr-service/internal/service"
)

const maxBodyBytes = 1 << 20

// LPRHandler exposes plate sighting endpoints.
type LPRHandler struct {
	svc    *service.LPRService
	logger *zap.Logger
}

// NewLPRHandler builds handler set.
func NewLPRHandler(svc *service.LPRService, logger *zap.Logger) *LPRHandler {
	return &LPRHandler{svc: svc, logger: logger}
}

type submitEventRequest struct {
	PlateNumber string          `json:"plate_number"`
	EventType   string          `json:"event_type"`
	Metadata    models.Metadata `json:"metadata"`
}

// HandleSubmitEvent handles POST /lpr.
func (h *LPRHandler) HandleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req submitEventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Debug("invalid lpr payload", zap.String("remote", r.RemoteAddr), zap.Error(err))
		writeRejection(w, http.StatusBadRequest, "invalid json", service.ReasonValidation)
		return
	}

	result, err := h.svc.SubmitEvent(r.Context(), service.SubmitEventInput{
		PlateNumber: req.PlateNumber,
		EventType:   req.EventType,
		Metadata:    req.Metadata,
	})
	if err != nil {
		status, message := submitErrorResponse(err)
		writeRejection(w, status, message, service.Reason(err))
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func submitErrorResponse(err error) (int, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr) && verr.Message == service.MsgInvalidEventType:
		return http.StatusBadRequest, "Invalid event type."
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "Plate number and event type are required."
	case errors.Is(err, service.ErrDuplicateSubmission):
		return http.StatusBadRequest, "Duplicate event detected. Please avoid repeated submissions."
	case errors.Is(err, service.ErrEntryAlreadyOpen):
		return http.StatusBadRequest, "Entry for this record already happened."
	case errors.Is(err, service.ErrExitWithoutEntry):
		return http.StatusBadRequest, "Exit cannot be recorded, entry has to happen first."
	case errors.Is(err, service.ErrSessionRaceLost):
		return http.StatusNotFound, "Session not found or already ended."
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// HandleHistory handles GET /lpr/history.
func (h *LPRHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.GetHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleActiveSessions handles GET /lpr/sessions/active.
func (h *LPRHandler) HandleActiveSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	sessions, err := h.svc.GetActiveSessions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// HandleSimilarPlates handles GET /lpr/similar?plate=X.
func (h *LPRHandler) HandleSimilarPlates(w http.ResponseWriter, r *http.Request) {
	plate := r.URL.Query().Get("plate")
	matches, err := h.svc.FindSimilarPlates(r.Context(), plate)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeRejection(w, http.StatusBadRequest, "plate is required", service.ReasonValidation)
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plate_number": models.NormalizePlate(plate),
		"matches":      matches,
	})
}
