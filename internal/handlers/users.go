package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/AndreasAanestad/websync-station/internal/middleware"
	"github.com/AndreasAanestad/websync-station/internal/station"
	"github.com/AndreasAanestad/websync-station/internal/utils"

	"github.com/gin-gonic/gin"
)

// UserHandlers is the admin-only account management API.
type UserHandlers struct {
	users       *station.UserStore
	authService *middleware.AuthService
	logger      *utils.Logger
}

// NewUserHandlers constructs handlers with optional logger (nil-safe).
func NewUserHandlers(store *station.UserStore, auth *middleware.AuthService, logger *utils.Logger) *UserHandlers {
	return &UserHandlers{users: store, authService: auth, logger: logger}
}

func (h *UserHandlers) requireAdmin(c *gin.Context, op string) bool {
	if c.GetString("role") == string(station.RoleAdmin) {
		return true
	}
	if h.logger != nil {
		uname := strings.TrimSpace(c.GetString("username"))
		h.logger.Write(fmt.Sprintf("%s: forbidden for user '%s' (role=%s)", op, uname, c.GetString("role")))
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin required"})
	return false
}

// APIUsersList returns accounts, optionally filtered by ?q=
func (h *UserHandlers) APIUsersList(c *gin.Context) {
	if !h.requireAdmin(c, "APIUsersList") {
		return
	}
	// Best-effort refresh from disk to reflect any external changes
	_ = h.users.Load()
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	users := h.users.Users()
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		if q != "" {
			if !strings.Contains(strings.ToLower(u.Username), q) && !strings.Contains(strings.ToLower(string(u.Role)), q) {
				continue
			}
		}
		out = append(out, gin.H{
			"username":   u.Username,
			"role":       u.Role,
			"created_at": u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type apiCreateUserReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *UserHandlers) APIUsersCreate(c *gin.Context) {
	if !h.requireAdmin(c, "APIUsersCreate") {
		return
	}
	var req apiCreateUserReq
	if err := c.BindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	username, err := ValidateAccountInput(req.Username, req.Password)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, ok := ParseRole(req.Role)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "hash failure"})
		return
	}
	if _, err := h.users.CreateUser(username, hash, role); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

type apiSetRoleReq struct {
	Role string `json:"role"`
}

func (h *UserHandlers) APIUsersSetRole(c *gin.Context) {
	if !h.requireAdmin(c, "APIUsersSetRole") {
		return
	}
	username := strings.TrimSpace(c.Param("username"))
	var req apiSetRoleReq
	if err := c.BindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	role, ok := ParseRole(req.Role)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	// Prevent demoting the last admin
	if role != station.RoleAdmin {
		if u, exists := h.users.Get(username); exists && u.Role == station.RoleAdmin && h.users.AdminCount() <= 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "at least one admin required"})
			return
		}
	}
	if err := h.users.SetRole(username, role); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type apiResetPasswordReq struct {
	Password string `json:"password"`
}

func (h *UserHandlers) APIUsersResetPassword(c *gin.Context) {
	if !h.requireAdmin(c, "APIUsersResetPassword") {
		return
	}
	username := strings.TrimSpace(c.Param("username"))
	var req apiResetPasswordReq
	if err := c.BindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if err := ValidatePassword(req.Password); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "hash failure"})
		return
	}
	if err := h.users.SetPassword(username, hash); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *UserHandlers) APIUsersDelete(c *gin.Context) {
	if !h.requireAdmin(c, "APIUsersDelete") {
		return
	}
	username := strings.TrimSpace(c.Param("username"))
	if u, exists := h.users.Get(username); exists && u.Role == station.RoleAdmin && h.users.AdminCount() <= 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot delete last admin"})
		return
	}
	if err := h.users.Delete(username); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
