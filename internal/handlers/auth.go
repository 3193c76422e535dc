package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"grocery-sync/internal/auth"
	"grocery-sync/internal/config"
	"grocery-sync/internal/logger"
)

type AuthHandler struct {
	jwtManager *auth.JWTManager
	cfg        config.AuthConfig
	validator  *validator.Validate
}

func NewAuthHandler(jwtManager *auth.JWTManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		cfg:        cfg,
		validator:  validator.New(),
	}
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

// Login exchanges the deployment password for a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, err := h.jwtManager.GenerateToken()
	if err != nil {
		logger.Sugar.Errorf("Failed to generate token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
