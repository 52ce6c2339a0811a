package handlers

import (
	"net/http"
	"strings"

	"github.com/AndreasAanestad/websync-station/internal/middleware"
	"github.com/AndreasAanestad/websync-station/internal/station"

	"github.com/gin-gonic/gin"
)

// ProfileHandlers provides self-service account actions available to
// every authenticated role.
type ProfileHandlers struct {
	users       *station.UserStore
	authService *middleware.AuthService
}

func NewProfileHandlers(store *station.UserStore, auth *middleware.AuthService) *ProfileHandlers {
	return &ProfileHandlers{users: store, authService: auth}
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// APIProfileChangePassword updates the caller's own password after
// verifying the current one. The session stays valid.
func (h *ProfileHandlers) APIProfileChangePassword(c *gin.Context) {
	username := c.GetString("username")

	var req changePasswordReq
	if err := c.BindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	newPass := strings.TrimSpace(req.NewPassword)
	if err := ValidatePassword(newPass); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if newPass != strings.TrimSpace(req.ConfirmPassword) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match."})
		return
	}

	u, ok := h.users.Get(username)
	if !ok || !h.authService.CheckPassword(req.CurrentPassword, u.PasswordHash) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect."})
		return
	}

	hash, err := h.authService.HashPassword(newPass)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password."})
		return
	}
	if err := h.users.SetPassword(username, hash); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to save new password."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
