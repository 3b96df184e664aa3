package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const (
	maxOpenConns    = 25
	connMaxIdleTime = 5 * time.Minute
)

// Postgres holds the pool shared by the user repository and migrations
type Postgres struct {
	DB *sql.DB
}

// NewPostgres opens a pool for dsn and verifies it is reachable within ctx
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{DB: db}, nil
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}

// Ping reports whether the database answers within ctx
func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}
