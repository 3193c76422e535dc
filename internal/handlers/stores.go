package handlers

import (
	"context"

	"grocery-sync/internal/models"
	"grocery-sync/internal/websocket"
)

// DocumentStore is the slice of the record store the handlers consume.
// Update must apply fn atomically against the stored document.
type DocumentStore interface {
	Load(ctx context.Context) (models.Document, string, error)
	Update(ctx context.Context, fn func(doc *models.Document, updatedAt string) (models.Document, error)) (models.Document, string, error)
}

// TokenStore issues and resolves share tokens.
type TokenStore interface {
	Find(ctx context.Context, shareType, itemID string) (string, error)
	Create(ctx context.Context, shareType, itemID string) (string, error)
	Resolve(ctx context.Context, token, shareType string) (string, error)
}

// Broadcaster relays an update to a room's live subscribers.
type Broadcaster interface {
	BroadcastToRoom(room, messageType string, data interface{}, exclude *websocket.Client)
}
