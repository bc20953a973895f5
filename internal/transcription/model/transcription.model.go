package model

import (
	"time"

	"transcriptionapi/store"
)

// CreateTranscriptionRequest is the body of POST /transcriptions. Any owner
// field the client sends is ignored.
type CreateTranscriptionRequest struct {
	Text     string   `json:"text" validate:"notblank"`
	Duration *float64 `json:"duration" validate:"required,gte=0"`
}

// UpdateTranscriptionRequest is the body of PUT /transcriptions/{id}.
type UpdateTranscriptionRequest struct {
	Text     *string  `json:"text" validate:"omitnil,notblank"`
	Duration *float64 `json:"duration" validate:"omitnil,gte=0"`
}

func (r UpdateTranscriptionRequest) Patch() store.Patch {
	return store.Patch{Text: r.Text, Duration: r.Duration}
}

type TranscriptionResponse struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Created  string  `json:"created"`
	UID      string  `json:"uid"`
}

func FromRecord(t *store.Transcription) TranscriptionResponse {
	return TranscriptionResponse{
		ID:       t.ID,
		Text:     t.Text,
		Duration: t.Duration,
		Created:  t.Created.UTC().Format(time.RFC3339Nano),
		UID:      t.Owner,
	}
}

func FromRecords(records []store.Transcription) []TranscriptionResponse {
	out := make([]TranscriptionResponse, 0, len(records))
	for i := range records {
		out = append(out, FromRecord(&records[i]))
	}
	return out
}
