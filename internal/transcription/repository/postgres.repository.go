package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"transcriptionapi/pkg/logger"
	"transcriptionapi/store"

	"github.com/google/uuid"
)

// Schema is the table PostgresRepository expects. It is not applied automatically.
const Schema = `CREATE TABLE IF NOT EXISTS transcriptions (
	id       TEXT PRIMARY KEY,
	text     TEXT NOT NULL,
	duration DOUBLE PRECISION NOT NULL,
	created  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	uid      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS transcriptions_uid_created_idx ON transcriptions (uid, created DESC);`

var _ store.Store = (*PostgresRepository)(nil)

type PostgresRepository struct {
	DB    *sql.DB
	newID func() string
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{DB: db, newID: uuid.NewString}
}

func (r *PostgresRepository) Insert(ctx context.Context, owner, text string, duration float64) (*store.Transcription, error) {
	t := &store.Transcription{ID: r.newID(), Text: text, Duration: duration, Owner: owner}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO transcriptions (id, text, duration, created, uid) VALUES ($1, $2, $3, NOW(), $4) RETURNING created`,
		t.ID, text, duration, owner,
	).Scan(&t.Created)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert transcription for user %s: %v", owner, err)
		return nil, err
	}
	return t, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*store.Transcription, error) {
	var t store.Transcription
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, text, duration, created, uid FROM transcriptions WHERE id = $1", id,
	).Scan(&t.ID, &t.Text, &t.Duration, &t.Created, &t.Owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get transcription %s: %v", id, err)
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]store.Transcription, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, text, duration, created, uid FROM transcriptions WHERE uid = $1 ORDER BY created DESC LIMIT $2",
		owner, limit,
	)
	if err != nil {
		logger.Sugar.Errorf("Failed to list transcriptions for user %s: %v", owner, err)
		return nil, err
	}
	defer rows.Close()

	out := []store.Transcription{}
	for rows.Next() {
		var t store.Transcription
		if err := rows.Scan(&t.ID, &t.Text, &t.Duration, &t.Created, &t.Owner); err != nil {
			logger.Sugar.Errorf("Failed to scan transcription row: %v", err)
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		logger.Sugar.Errorf("Failed to iterate transcriptions for user %s: %v", owner, err)
		return nil, err
	}
	return out, nil
}

// Update overwrites only the non-nil patch fields.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch store.Patch) (*store.Transcription, error) {
	var t store.Transcription
	err := r.DB.QueryRowContext(ctx,
		`UPDATE transcriptions SET text = COALESCE($2, text), duration = COALESCE($3, duration)
		WHERE id = $1 RETURNING id, text, duration, created, uid`,
		id, nullString(patch.Text), nullFloat(patch.Duration),
	).Scan(&t.ID, &t.Text, &t.Duration, &t.Created, &t.Owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to update transcription %s: %v", id, err)
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM transcriptions WHERE id = $1", id)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete transcription %s: %v", id, err)
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
