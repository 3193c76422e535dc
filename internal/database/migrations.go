package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"grocery-sync/internal/models"
)

// Migrate creates the two tables this service needs and seeds the canonical
// document on a fresh database.
func Migrate(db *DB) error {
	_, err := db.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS app_data (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data JSONB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create app_data table: %w", err)
	}

	_, err = db.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS share_tokens (
			token TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			item_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (type, item_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create share_tokens table: %w", err)
	}

	var exists bool
	err = db.QueryRow(context.Background(),
		"SELECT EXISTS (SELECT 1 FROM app_data WHERE id = 1)").Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for seeded document: %w", err)
	}

	if !exists {
		data, err := json.Marshal(models.DefaultDocument())
		if err != nil {
			return fmt.Errorf("failed to marshal default document: %w", err)
		}
		_, err = db.Exec(context.Background(),
			"INSERT INTO app_data (id, data, updated_at) VALUES (1, $1, $2)",
			data, Timestamp(time.Now()))
		if err != nil {
			return fmt.Errorf("failed to seed default document: %w", err)
		}
	}

	return nil
}
