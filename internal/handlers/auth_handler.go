package handlers

import (
	"net/http"
	"time"

	"cache-store-api/internal/auth"
	"cache-store-api/internal/logging"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}

// Login exchanges API client credentials for a token
// POST /api/login
func Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. client_id and client_secret are required.",
		})
		return
	}

	if err := auth.CheckClient(req.ClientID, req.ClientSecret); err != nil {
		logging.Op().Warn("login rejected", "client_id", req.ClientID)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid client credentials",
		})
		return
	}

	token, expiresAt, err := auth.GenerateToken(req.ClientID)
	if err != nil {
		logging.Op().Error("token generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ClientID:  req.ClientID,
		ExpiresAt: expiresAt,
		Message:   "Login successful",
	})
}
