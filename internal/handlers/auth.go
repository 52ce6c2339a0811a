package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/AndreasAanestad/websync-station/internal/middleware"
	"github.com/AndreasAanestad/websync-station/internal/station"

	"github.com/gin-gonic/gin"
)

// AuthHandlers owns the console session endpoints: first-run setup,
// login, logout and the identity probe the frontend polls.
type AuthHandlers struct {
	authService *middleware.AuthService
	station     *station.Station
	users       *station.UserStore
}

func NewAuthHandlers(authService *middleware.AuthService, st *station.Station, store *station.UserStore) *AuthHandlers {
	h := &AuthHandlers{
		authService: authService,
		station:     st,
		users:       store,
	}
	// Ensure latest on boot (ignore error if missing)
	_ = h.users.Load()
	return h
}

func (h *AuthHandlers) logAuthEvent(format string, args ...interface{}) {
	if h == nil || h.station == nil || h.station.Log == nil {
		return
	}
	h.station.Log.Write(fmt.Sprintf(format, args...))
}

func (h *AuthHandlers) reloadUsers(reason string) {
	if h == nil || h.users == nil {
		return
	}
	if err := h.users.Load(); err != nil {
		h.logAuthEvent("User store reload failed (%s): %v", reason, err)
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// APILogin authenticates against the account store and hands out the
// session cookie plus the raw token for non-browser clients.
func (h *AuthHandlers) APILogin(c *gin.Context) {
	if h.users.IsEmpty() {
		c.JSON(http.StatusConflict, gin.H{
			"error": "No accounts exist yet",
			"setup": true,
		})
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	username := middleware.SanitizeString(req.Username)
	password := strings.TrimSpace(req.Password)
	h.reloadUsers("api login")

	u, exists := h.users.Get(username)
	if !exists || !h.authService.CheckPassword(password, u.PasswordHash) {
		if !exists {
			h.logAuthEvent("API login failed for unknown user '%s' from %s", username, c.ClientIP())
		} else {
			h.logAuthEvent("API login failed for user '%s' from %s: password mismatch", username, c.ClientIP())
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	h.logAuthEvent("API login successful for user '%s' from %s", username, c.ClientIP())

	token, err := h.authService.GenerateToken(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	h.authService.SetAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  username,
		"role":  u.Role,
	})
}

// APILogout drops the session cookie. The token itself stays valid
// until expiry; the per-boot secret bounds that window.
func (h *AuthHandlers) APILogout(c *gin.Context) {
	middleware.ClearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// APIMe reports the authenticated identity and resolved role.
func (h *AuthHandlers) APIMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"username": c.GetString("username"),
		"role":     c.GetString("role"),
	})
}

type SetupRequest struct {
	Password string `json:"password" binding:"required"`
	Confirm  string `json:"confirm" binding:"required"`
}

// APISetup creates the initial admin account. Only usable while the
// account store is empty; afterwards it always answers 409.
func (h *AuthHandlers) APISetup(c *gin.Context) {
	h.reloadUsers("setup")
	if !h.users.IsEmpty() {
		c.JSON(http.StatusConflict, gin.H{"error": "Console is already initialized"})
		return
	}

	var req SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	password := strings.TrimSpace(req.Password)
	if err := ValidatePassword(password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if password != strings.TrimSpace(req.Confirm) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match."})
		return
	}

	hash, err := h.authService.HashPassword(password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set password."})
		return
	}
	if _, err := h.users.CreateUser("admin", hash, station.RoleAdmin); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create admin user."})
		return
	}

	h.logAuthEvent("Initial admin account created from %s", c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "user": "admin"})
}
