package database

import (
	"database/sql"
	"fmt"
	"time"

	"transcriptionapi/pkg/logger"

	_ "github.com/lib/pq"
)

const (
	pingAttempts = 5
	pingWait     = 2 * time.Second
)

// Connect opens the Postgres pool and waits until it answers a ping.
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database connection: %w", err)
	}
	if err := WaitForPing(db, pingAttempts, pingWait); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// WaitForPing retries db.Ping to ride out DNS or network blips at startup.
func WaitForPing(db *sql.DB, attempts int, wait time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return nil
		}
		if i < attempts-1 {
			logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", wait, err)
			time.Sleep(wait)
		}
	}
	return fmt.Errorf("could not connect to database after %d attempts: %w", attempts, err)
}
