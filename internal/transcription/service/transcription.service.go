package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"transcriptionapi/internal/transcription/model"
	"transcriptionapi/pkg/apperror"
	"transcriptionapi/pkg/logger"
	"transcriptionapi/socket"
	"transcriptionapi/store"
)

// Publisher receives change events for an owner's feed.
type Publisher interface {
	Publish(owner string, event socket.Event)
}

type Options struct {
	StoreTimeout time.Duration
	DefaultLimit int
	MaxLimit     int
}

func DefaultOptions() Options {
	return Options{StoreTimeout: 10 * time.Second, DefaultLimit: 50, MaxLimit: 500}
}

// TranscriptionService enforces ownership on top of a Store. It holds no
// per-request state. Concurrent updates to one record are last-write-wins.
type TranscriptionService struct {
	Repo   store.Store
	Events Publisher
	opts   Options
}

// NewTranscriptionService must be called before the server accepts requests.
// events may be nil.
func NewTranscriptionService(repo store.Store, events Publisher, opts Options) *TranscriptionService {
	defaults := DefaultOptions()
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaults.StoreTimeout
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaults.DefaultLimit
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &TranscriptionService{Repo: repo, Events: events, opts: opts}
}

func (s *TranscriptionService) Create(ctx context.Context, userID string, req model.CreateTranscriptionRequest) (*model.TranscriptionResponse, error) {
	if err := model.Validate(req); err != nil {
		return nil, apperror.Invalid(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	t, err := s.Repo.Insert(ctx, userID, req.Text, *req.Duration)
	if err != nil {
		return nil, apperror.Internal("Failed to create transcription", err)
	}

	resp := model.FromRecord(t)
	s.publish(userID, socket.CreatedType, resp.ID, &resp)
	return &resp, nil
}

// List returns the caller's transcriptions. A nil limit means the default.
func (s *TranscriptionService) List(ctx context.Context, userID string, limit *int) ([]model.TranscriptionResponse, error) {
	n := s.opts.DefaultLimit
	if limit != nil {
		if *limit < 1 {
			return nil, apperror.Invalid("limit must be a positive integer")
		}
		n = min(*limit, s.opts.MaxLimit)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	records, err := s.Repo.ListByOwner(ctx, userID, n)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch transcriptions", err)
	}
	return model.FromRecords(records), nil
}

func (s *TranscriptionService) Get(ctx context.Context, id, userID string) (*model.TranscriptionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	t, err := s.authorize(ctx, id, userID, "Failed to fetch transcription")
	if err != nil {
		return nil, err
	}
	resp := model.FromRecord(t)
	return &resp, nil
}

// Update applies the supplied fields only. With no fields it returns the
// current record without writing.
func (s *TranscriptionService) Update(ctx context.Context, id, userID string, req model.UpdateTranscriptionRequest) (*model.TranscriptionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	const op = "Failed to update transcription"
	t, err := s.authorize(ctx, id, userID, op)
	if err != nil {
		return nil, err
	}

	patch := req.Patch()
	if patch.Empty() {
		resp := model.FromRecord(t)
		return &resp, nil
	}
	if err := model.Validate(req); err != nil {
		return nil, apperror.Invalid(err.Error())
	}

	updated, err := s.Repo.Update(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between the ownership check and the write.
		return nil, apperror.NotFound("Transcription not found")
	}
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	resp := model.FromRecord(updated)
	s.publish(userID, socket.UpdatedType, resp.ID, &resp)
	return &resp, nil
}

func (s *TranscriptionService) Delete(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	const op = "Failed to delete transcription"
	if _, err := s.authorize(ctx, id, userID, op); err != nil {
		return err
	}

	err := s.Repo.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("Transcription not found")
	}
	if err != nil {
		return apperror.Internal(op, err)
	}

	s.publish(userID, socket.DeletedType, id, nil)
	return nil
}

// authorize loads the record and checks it belongs to userID. Existence is
// checked before ownership: a missing id is 404 for every caller.
func (s *TranscriptionService) authorize(ctx context.Context, id, userID, op string) (*store.Transcription, error) {
	t, err := s.Repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("Transcription not found")
	}
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	if t.Owner != userID {
		logger.Sugar.Warnf("User %s denied access to transcription %s", userID, id)
		return nil, apperror.Forbidden("Access denied")
	}
	return t, nil
}

func (s *TranscriptionService) publish(owner, eventType, id string, payload interface{}) {
	if s.Events == nil {
		return
	}
	evt := socket.Event{Type: eventType, ID: id, UserID: owner}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			logger.Sugar.Errorf("Failed to marshal %s event for %s: %v", eventType, id, err)
			return
		}
		evt.Payload = raw
	}
	s.Events.Publish(owner, evt)
}
