package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"transcriptionapi/internal/transcription/model"
	"transcriptionapi/internal/transcription/service"
	"transcriptionapi/middleware"
	"transcriptionapi/pkg/apperror"
	"transcriptionapi/pkg/response"
)

const maxBodyBytes = 4 << 20

type TranscriptionHandler struct {
	Service *service.TranscriptionService
}

func NewTranscriptionHandler(service *service.TranscriptionService) *TranscriptionHandler {
	return &TranscriptionHandler{Service: service}
}

func (h *TranscriptionHandler) Root(w http.ResponseWriter, r *http.Request) {
	response.Message(w, http.StatusOK, "Transcription API is running")
}

func (h *TranscriptionHandler) CreateTranscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, apperror.Unauthenticated("Missing authorization header"))
		return
	}

	var req model.CreateTranscriptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	resp, err := h.Service.Create(r.Context(), userID, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, resp)
}

func (h *TranscriptionHandler) ListTranscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, apperror.Unauthenticated("Missing authorization header"))
		return
	}

	var limit *int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, apperror.Invalid("limit must be a positive integer"))
			return
		}
		limit = &n
	}

	resp, err := h.Service.List(r.Context(), userID, limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *TranscriptionHandler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, apperror.Unauthenticated("Missing authorization header"))
		return
	}

	resp, err := h.Service.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *TranscriptionHandler) UpdateTranscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, apperror.Unauthenticated("Missing authorization header"))
		return
	}

	id := r.PathValue("id")
	var req model.UpdateTranscriptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		// Existence and ownership are reported before a bad body.
		if _, authErr := h.Service.Get(r.Context(), id, userID); authErr != nil {
			err = authErr
		}
		response.Error(w, err)
		return
	}

	resp, err := h.Service.Update(r.Context(), id, userID, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *TranscriptionHandler) DeleteTranscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Error(w, apperror.Unauthenticated("Missing authorization header"))
		return
	}

	if err := h.Service.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "Transcription deleted successfully")
}

func (h *TranscriptionHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	response.Detail(w, http.StatusNotFound, "Not Found")
}

// MethodNotAllowed answers requests to a known path with an unsupported method.
func (h *TranscriptionHandler) MethodNotAllowed(allow ...string) http.HandlerFunc {
	allowHeader := strings.Join(allow, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allowHeader)
		response.Detail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Invalid("Invalid request body")
	}
	return nil
}
