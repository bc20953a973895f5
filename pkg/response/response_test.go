package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"transcriptionapi/pkg/apperror"

	"github.com/stretchr/testify/assert"
)

func TestErrorUsesKindStatusAndDetailEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	Error(rec, apperror.Forbidden("Access denied"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"detail":"Access denied"}`, rec.Body.String())
}

func TestErrorTreatsUntaggedAsInternal(t *testing.T) {
	rec := httptest.NewRecorder()

	Error(rec, errors.New("unexpected"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"unexpected"}`, rec.Body.String())
}

func TestMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	Message(rec, http.StatusOK, "Transcription API is running")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Transcription API is running"}`, rec.Body.String())
}
