package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"coachbook/internal/lessons/events"
	"coachbook/internal/lessons/service"
	apperrors "coachbook/pkg/errors"
	httputil "coachbook/pkg/http"
	"coachbook/pkg/logger"
	"coachbook/pkg/middleware"
	"coachbook/pkg/model"
)

const basePath = "/api/v1/lessons"

type LessonHandler struct {
	service service.LessonService
	log     *logger.Logger
}

func NewLessonHandler(service service.LessonService, log *logger.Logger) *LessonHandler {
	return &LessonHandler{
		service: service,
		log:     log,
	}
}

type updateLessonRequest struct {
	model.LessonCredentials
	model.LessonUpdate
}

type ackResponse struct {
	Success bool `json:"success"`
}

func (h *LessonHandler) AvailableTimes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	q := model.AvailabilityQuery{
		CoachName:  query.Get("coach_name"),
		LessonType: model.LessonType(query.Get("lesson_type")),
	}

	if freqStr := query.Get("frequency"); freqStr != "" {
		freq, err := strconv.Atoi(freqStr)
		if err != nil {
			h.writeError(w, "AvailableTimes", apperrors.InvalidInput(fmt.Sprintf("invalid frequency parameter: %s", freqStr)))
			return
		}
		q.Frequency = &freq
	}

	if durationStr := query.Get("duration"); durationStr != "" {
		duration, err := strconv.Atoi(durationStr)
		if err != nil {
			h.writeError(w, "AvailableTimes", apperrors.InvalidInput(fmt.Sprintf("invalid duration parameter: %s", durationStr)))
			return
		}
		q.Duration = duration
	}

	times, err := h.service.GetAvailableTimes(h.context(r), &q)
	if err != nil {
		h.writeError(w, "AvailableTimes", err)
		return
	}

	formatted := make([]string, 0, len(times))
	for _, t := range times {
		formatted = append(formatted, t.Format(time.RFC3339))
	}

	if err := httputil.WriteSuccess(w, formatted); err != nil {
		h.log.Error("failed to write success response", "handler", "AvailableTimes", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LessonHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookLessonRequest
	if !h.decode(w, r, "Book", &req) {
		return
	}

	result, err := h.service.BookLesson(h.context(r), &req)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	// The plaintext password is returned once and must not be replayed.
	w.Header().Set("Cache-Control", "no-store")
	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

// Info accepts credentials either as query parameters (GET) or as a JSON body (POST).
func (h *LessonHandler) Info(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var creds model.LessonCredentials
	if r.Method == http.MethodPost {
		if !h.decode(w, r, "Info", &creds) {
			return
		}
	} else {
		query := r.URL.Query()
		creds.LessonID = query.Get("lesson_id")
		creds.Password = query.Get("password")
	}

	view, err := h.service.GetLessonInfo(h.context(r), &creds)
	if err != nil {
		h.writeError(w, "Info", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Info", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LessonHandler) Update(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req updateLessonRequest
	if !h.decode(w, r, "Update", &req) {
		return
	}

	if err := h.service.UpdateLesson(h.context(r), &req.LessonCredentials, &req.LessonUpdate); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, ackResponse{Success: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LessonHandler) Cancel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var creds model.LessonCredentials
	if !h.decode(w, r, "Cancel", &creds) {
		return
	}

	if err := h.service.CancelLesson(h.context(r), &creds); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, ackResponse{Success: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LessonHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(basePath+"/available-times", h.AvailableTimes)
	router.POST(basePath+"/book", h.Book)
	router.GET(basePath+"/info", h.Info)
	router.POST(basePath+"/info", h.Info)
	router.PUT(basePath+"/update", h.Update)
	router.DELETE(basePath+"/cancel", h.Cancel)
}

// context carries the request id to lesson events as their correlation id.
func (h *LessonHandler) context(r *http.Request) context.Context {
	return events.WithCorrelationID(r.Context(), middleware.RequestID(r))
}

func (h *LessonHandler) decode(w http.ResponseWriter, r *http.Request, handler string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
			Code:  apperrors.CodeInvalidInput,
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", writeErr)
		}
		return false
	}
	return true
}

func (h *LessonHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
