package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get, Update and Delete for an unknown id.
var ErrNotFound = errors.New("transcription not found")

type Transcription struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Duration float64   `json:"duration"` // seconds
	Created  time.Time `json:"created"`
	Owner    string    `json:"uid"`
}

// Patch carries the fields of a partial update. Nil fields are left alone.
type Patch struct {
	Text     *string
	Duration *float64
}

func (p Patch) Empty() bool {
	return p.Text == nil && p.Duration == nil
}

// Store persists transcriptions. It is the only authority for ID and Created.
type Store interface {
	Insert(ctx context.Context, owner, text string, duration float64) (*Transcription, error)
	Get(ctx context.Context, id string) (*Transcription, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]Transcription, error)
	Update(ctx context.Context, id string, patch Patch) (*Transcription, error)
	Delete(ctx context.Context, id string) error
}
