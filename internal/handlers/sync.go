package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"grocery-sync/internal/database"
	"grocery-sync/internal/logger"
	"grocery-sync/internal/merge"
	"grocery-sync/internal/models"
)

type SyncHandler struct {
	store     DocumentStore
	validator *validator.Validate
}

func NewSyncHandler(store DocumentStore) *SyncHandler {
	return &SyncHandler{
		store:     store,
		validator: validator.New(),
	}
}

// GetData returns the canonical document as stored.
func (h *SyncHandler) GetData(c *gin.Context) {
	doc, updatedAt, err := h.store.Load(c.Request.Context())
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No data found"})
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to load document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc, "updatedAt": updatedAt})
}

// Sync reconciles the submitted document with the stored one. The merge
// runs inside the store's atomic update, so two clients syncing at once
// each see the other's committed result.
func (h *SyncHandler) Sync(c *gin.Context) {
	var req models.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merged, updatedAt, err := h.store.Update(c.Request.Context(),
		func(server *models.Document, serverUpdatedAt string) (models.Document, error) {
			return merge.Documents(server, serverUpdatedAt, *req.Data, req.LastSynced), nil
		})
	if err != nil {
		logger.Sugar.Errorf("Failed to sync document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync data"})
		return
	}

	c.JSON(http.StatusOK, models.SyncResponse{Data: merged, UpdatedAt: updatedAt})
}
