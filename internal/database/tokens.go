package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TokenStore maps opaque share tokens to (type, item_id) pairs. A pair gets
// exactly one token for its lifetime.
type TokenStore struct {
	db *DB
}

func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

// Find returns the existing token for a pair, or ErrNotFound.
func (s *TokenStore) Find(ctx context.Context, shareType, itemID string) (string, error) {
	var token string
	err := s.db.QueryRow(ctx,
		"SELECT token FROM share_tokens WHERE type = $1 AND item_id = $2",
		shareType, itemID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up share token: %w", err)
	}
	return token, nil
}

// Create generates a token for a pair. If another request created one in
// the meantime, the existing token is returned instead, so generation stays
// idempotent under concurrency.
func (s *TokenStore) Create(ctx context.Context, shareType, itemID string) (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}

	var token string
	err := s.db.QueryRow(ctx, `
		INSERT INTO share_tokens (token, type, item_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (type, item_id) DO UPDATE SET token = share_tokens.token
		RETURNING token`,
		hex.EncodeToString(bytes), shareType, itemID, Timestamp(time.Now())).Scan(&token)
	if err != nil {
		return "", fmt.Errorf("failed to create share token: %w", err)
	}
	return token, nil
}

// Resolve returns the item id a token grants access to, scoped to the share
// type so a list token cannot open a recipe.
func (s *TokenStore) Resolve(ctx context.Context, token, shareType string) (string, error) {
	var itemID string
	err := s.db.QueryRow(ctx,
		"SELECT item_id FROM share_tokens WHERE token = $1 AND type = $2",
		token, shareType).Scan(&itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve share token: %w", err)
	}
	return itemID, nil
}
