package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens a pooled postgres handle and verifies it with a bounded
// ping.
func Connect(dsn string, timeout time.Duration) (*sql.DB, error) {
	handle, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	handle.SetMaxOpenConns(25)
	handle.SetMaxIdleConns(25)
	handle.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return handle, nil
}
