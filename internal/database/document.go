package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"grocery-sync/internal/models"
)

// DocumentStore persists the single canonical document row.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Load reads the document and its last-modified timestamp.
func (s *DocumentStore) Load(ctx context.Context) (models.Document, string, error) {
	var data []byte
	var updatedAt string
	err := s.db.QueryRow(ctx,
		"SELECT data, updated_at FROM app_data WHERE id = 1").Scan(&data, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, "", ErrNotFound
	}
	if err != nil {
		return models.Document{}, "", fmt.Errorf("failed to load document: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, "", fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, updatedAt, nil
}

// Update runs fn against the current document inside one transaction with
// the row locked, then persists fn's result with a fresh timestamp. This is
// what keeps two concurrent syncs from clobbering each other: each one sees
// the document the previous writer left behind. fn receives a nil document
// when no row exists yet.
func (s *DocumentStore) Update(ctx context.Context, fn func(doc *models.Document, updatedAt string) (models.Document, error)) (models.Document, string, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return models.Document{}, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current *models.Document
	var updatedAt string
	var data []byte
	err = tx.QueryRow(ctx,
		"SELECT data, updated_at FROM app_data WHERE id = 1 FOR UPDATE").Scan(&data, &updatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// fn decides what a first write looks like.
	case err != nil:
		return models.Document{}, "", fmt.Errorf("failed to load document: %w", err)
	default:
		var doc models.Document
		if decodeErr := json.Unmarshal(data, &doc); decodeErr == nil {
			current = &doc
		}
		// An undecodable row is treated as absent; fn's result replaces it.
	}

	next, err := fn(current, updatedAt)
	if err != nil {
		return models.Document{}, "", err
	}

	nextData, err := json.Marshal(next)
	if err != nil {
		return models.Document{}, "", fmt.Errorf("failed to encode document: %w", err)
	}

	now := Timestamp(time.Now())
	_, err = tx.Exec(ctx, `
		INSERT INTO app_data (id, data, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET data = $1, updated_at = $2`,
		nextData, now)
	if err != nil {
		return models.Document{}, "", fmt.Errorf("failed to save document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Document{}, "", fmt.Errorf("failed to commit document update: %w", err)
	}
	return next, now, nil
}
