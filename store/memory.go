package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps transcriptions in process memory. Lists are newest first.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Transcription
	order   []string
	now     func() time.Time
	last    time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Transcription),
		now:     time.Now,
	}
}

// WithClock replaces the creation time source.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Insert(ctx context.Context, owner, text string, duration float64) (*Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	created := m.now().UTC()
	if !created.After(m.last) {
		created = m.last.Add(time.Microsecond)
	}
	m.last = created

	t := Transcription{
		ID:       uuid.NewString(),
		Text:     text,
		Duration: duration,
		Created:  created,
		Owner:    owner,
	}
	m.records[t.ID] = t
	m.order = append(m.order, t.ID)
	return &t, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (m *MemoryStore) ListByOwner(ctx context.Context, owner string, limit int) ([]Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Transcription{}
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if t := m.records[m.order[i]]; t.Owner == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, patch Patch) (*Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if patch.Text != nil {
		t.Text = *patch.Text
	}
	if patch.Duration != nil {
		t.Duration = *patch.Duration
	}
	m.records[id] = t
	return &t, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(m.records, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
