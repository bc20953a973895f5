package response

import (
	"encoding/json"
	"net/http"

	"transcriptionapi/pkg/apperror"
	"transcriptionapi/pkg/logger"
)

// ErrorBody is the envelope for every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// MessageBody is returned by endpoints that have no resource to show.
type MessageBody struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}

func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageBody{Message: msg})
}

func Detail(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, ErrorBody{Detail: detail})
}

// Error writes err with the status of its kind.
func Error(w http.ResponseWriter, err error) {
	status := apperror.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Sugar.Errorf("Request failed: %v", err)
	}
	Detail(w, status, err.Error())
}
