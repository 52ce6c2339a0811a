package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AndreasAanestad/websync-station/internal/station"
	"github.com/AndreasAanestad/websync-station/internal/utils"
)

// EnsureRoleContext attaches the account's role to the Gin context and
// applies a safety net: when no admin accounts exist but an account
// named "admin" is authenticated, it is promoted so a deleted last admin
// can never lock the console. Expects an upstream auth middleware to
// have set "username".
func EnsureRoleContext(users *station.UserStore, logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		usernameVal, _ := c.Get("username")
		role := string(station.RoleViewer)
		if uname, ok := usernameVal.(string); ok {
			if u, ok := users.Get(uname); ok {
				if string(u.Role) != "" {
					role = string(u.Role)
				}
			}
			if users.AdminCount() == 0 && strings.EqualFold(uname, "admin") {
				if err := users.SetRole("admin", station.RoleAdmin); err == nil {
					role = string(station.RoleAdmin)
					if logger != nil {
						logger.Write("No admin found; auto-promoted 'admin' to admin role.")
					}
				}
			}
		}
		c.Set("role", role)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the resolved role is one of the
// allowed ones. Admins pass every gate.
func RequireRole(allowed ...station.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, _ := c.Get("role")
		role, _ := roleVal.(string)
		if role == string(station.RoleAdmin) {
			c.Next()
			return
		}
		for _, want := range allowed {
			if role == string(want) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient privileges"})
	}
}
