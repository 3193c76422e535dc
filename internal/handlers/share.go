package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"grocery-sync/internal/database"
	"grocery-sync/internal/logger"
	"grocery-sync/internal/models"
	"grocery-sync/internal/websocket"
)

type ShareHandler struct {
	store     DocumentStore
	tokens    TokenStore
	hub       Broadcaster
	validator *validator.Validate
}

func NewShareHandler(store DocumentStore, tokens TokenStore, hub Broadcaster) *ShareHandler {
	return &ShareHandler{
		store:     store,
		tokens:    tokens,
		hub:       hub,
		validator: validator.New(),
	}
}

// GenerateToken returns the share token for an item, creating one on first
// request. Repeat requests for the same item get the same token.
func (h *ShareHandler) GenerateToken(c *gin.Context) {
	var req models.GenerateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing type or id"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing type or id"})
		return
	}

	token, err := h.tokens.Find(c.Request.Context(), req.Type, req.ID)
	if errors.Is(err, database.ErrNotFound) {
		token, err = h.tokens.Create(c.Request.Context(), req.Type, req.ID)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to generate share token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate share token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GetSharedItem returns the list or recipe a token points at.
func (h *ShareHandler) GetSharedItem(c *gin.Context) {
	shareType := c.Param("type")
	token := c.Param("token")
	if shareType != models.ShareTypeList && shareType != models.ShareTypeRecipe {
		c.JSON(http.StatusNotFound, gin.H{"error": "Share link not found"})
		return
	}

	itemID, err := h.tokens.Resolve(c.Request.Context(), token, shareType)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Share link not found"})
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to resolve share token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get shared item"})
		return
	}

	doc, _, err := h.store.Load(c.Request.Context())
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Data not found"})
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to load document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get shared item"})
		return
	}

	for _, raw := range doc.Collection(shareType) {
		if models.Meta(raw).ID == itemID {
			c.JSON(http.StatusOK, gin.H{"data": raw, "id": itemID})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
}

// UpdateSharedItem replaces the shared item, persists the document and
// notifies live viewers of the share room. The caller's own connection is
// not known here, so every subscriber gets the broadcast; clients ignore
// echoes of their own edits by comparing updatedAt.
func (h *ShareHandler) UpdateSharedItem(c *gin.Context) {
	shareType := c.Param("type")
	token := c.Param("token")
	if shareType != models.ShareTypeList && shareType != models.ShareTypeRecipe {
		c.JSON(http.StatusNotFound, gin.H{"error": "Share link not found"})
		return
	}

	var req models.UpdateSharedItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	itemID, err := h.tokens.Resolve(c.Request.Context(), token, shareType)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Share link not found"})
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to resolve share token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update shared item"})
		return
	}

	// The token holder cannot change which item it points at.
	item, err := withRecordID(req.Data, itemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	_, _, err = h.store.Update(c.Request.Context(),
		func(doc *models.Document, _ string) (models.Document, error) {
			if doc == nil {
				return models.Document{}, database.ErrNotFound
			}
			collection := doc.Collection(shareType)
			replaced := false
			for i, raw := range collection {
				if models.Meta(raw).ID == itemID {
					collection[i] = item
					replaced = true
					break
				}
			}
			if !replaced {
				return models.Document{}, database.ErrNotFound
			}
			return *doc, nil
		})
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to update shared item: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update shared item"})
		return
	}

	room := fmt.Sprintf("%s:%s", shareType, token)
	h.hub.BroadcastToRoom(room, websocket.MessageTypeUpdate, gin.H{
		"item": json.RawMessage(item),
		"type": shareType,
		"id":   itemID,
	}, nil)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// withRecordID re-encodes a raw record with its id pinned server-side.
func withRecordID(raw json.RawMessage, id string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	idJSON, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields["id"] = idJSON
	return json.Marshal(fields)
}
