package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transcriptionapi/pkg/logger"
	"transcriptionapi/store"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreRecord is the document layout in the transcriptions collection.
type firestoreRecord struct {
	Text     string    `firestore:"text"`
	Duration float64   `firestore:"duration"`
	Created  time.Time `firestore:"created"`
	UID      string    `firestore:"uid"`
}

var _ store.Store = (*FirestoreRepository)(nil)

type FirestoreRepository struct {
	Client     *firestore.Client
	Collection string
}

func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	return &FirestoreRepository{Client: client, Collection: collection}
}

func (r *FirestoreRepository) col() *firestore.CollectionRef {
	return r.Client.Collection(r.Collection)
}

func (r *FirestoreRepository) Insert(ctx context.Context, owner, text string, duration float64) (*store.Transcription, error) {
	ref, _, err := r.col().Add(ctx, map[string]interface{}{
		"text":     text,
		"duration": duration,
		"created":  firestore.ServerTimestamp,
		"uid":      owner,
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to add transcription for user %s: %v", owner, err)
		return nil, err
	}

	// Read back so the caller sees the server-assigned timestamp.
	return r.read(ctx, ref)
}

func (r *FirestoreRepository) Get(ctx context.Context, id string) (*store.Transcription, error) {
	return r.read(ctx, r.col().Doc(id))
}

func (r *FirestoreRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]store.Transcription, error) {
	iter := r.col().Where("uid", "==", owner).Limit(limit).Documents(ctx)
	defer iter.Stop()

	out := []store.Transcription{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Sugar.Errorf("Failed to list transcriptions for user %s: %v", owner, err)
			return nil, err
		}
		t, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *FirestoreRepository) Update(ctx context.Context, id string, patch store.Patch) (*store.Transcription, error) {
	ref := r.col().Doc(id)
	if ref == nil {
		return nil, fmt.Errorf("update %q: %w", id, store.ErrNotFound)
	}

	var updates []firestore.Update
	if patch.Text != nil {
		updates = append(updates, firestore.Update{Path: "text", Value: *patch.Text})
	}
	if patch.Duration != nil {
		updates = append(updates, firestore.Update{Path: "duration", Value: *patch.Duration})
	}
	if len(updates) > 0 {
		if _, err := ref.Update(ctx, updates); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
			}
			logger.Sugar.Errorf("Failed to update transcription %s: %v", id, err)
			return nil, err
		}
	}
	return r.read(ctx, ref)
}

func (r *FirestoreRepository) Delete(ctx context.Context, id string) error {
	ref := r.col().Doc(id)
	if ref == nil {
		return fmt.Errorf("delete %q: %w", id, store.ErrNotFound)
	}

	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
		}
		logger.Sugar.Errorf("Failed to delete transcription %s: %v", id, err)
		return err
	}
	return nil
}

func (r *FirestoreRepository) read(ctx context.Context, ref *firestore.DocumentRef) (*store.Transcription, error) {
	// Doc returns nil for ids that are not a valid single path segment.
	if ref == nil {
		return nil, fmt.Errorf("get: invalid id: %w", store.ErrNotFound)
	}

	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("get %s: %w", ref.ID, store.ErrNotFound)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get transcription %s: %v", ref.ID, err)
		return nil, err
	}
	return decode(snap)
}

func decode(snap *firestore.DocumentSnapshot) (*store.Transcription, error) {
	var rec firestoreRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode transcription %s: %w", snap.Ref.ID, err)
	}
	return &store.Transcription{
		ID:       snap.Ref.ID,
		Text:     rec.Text,
		Duration: rec.Duration,
		Created:  rec.Created,
		Owner:    rec.UID,
	}, nil
}
