package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"grocery-sync/internal/config"
	"grocery-sync/internal/logger"
)

// ErrNotFound is returned by stores when a row, token or item is absent.
var ErrNotFound = errors.New("not found")

type DB struct {
	*pgxpool.Pool
}

// Connect opens the pool and pings it with a retry, in case the database
// container is still coming up.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = pool.Ping(context.Background()); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return &DB{pool}, nil
		}
		logger.Sugar.Infof("Database connection failed, retrying in 2s... (%v)", err)
		time.Sleep(2 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("could not connect to database after retries: %w", err)
}

// Timestamp formats an instant the way the store and sync responses expect.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
