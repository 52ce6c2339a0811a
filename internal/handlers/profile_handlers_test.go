package handlers

import (
	"net/http"
	"testing"

	"github.com/AndreasAanestad/websync-station/internal/middleware"
	"github.com/AndreasAanestad/websync-station/internal/station"

	"github.com/gin-gonic/gin"
)

func buildProfileRouter(t *testing.T, store *station.UserStore, user, pass string) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth, err := middleware.NewAuthService(1)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	hash, err := auth.HashPassword(pass)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := store.CreateUser(user, hash, station.RoleViewer); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	h := NewProfileHandlers(store, auth)
	r := gin.New()
	api := r.Group("/api")
	api.Use(auth.RequireAPIAuth())
	api.POST("/profile/password", h.APIProfileChangePassword)
	return r, token
}

func TestAPIProfilePassword_Success(t *testing.T) {
	store := setupAccountStore(t)
	r, token := buildProfileRouter(t, store, "alice", "oldpass123")

	w := postJSON(t, r, "/api/profile/password", map[string]string{
		"current_password": "oldpass123",
		"new_password":     "newpass123",
		"confirm_password": "newpass123",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIProfilePassword_WrongCurrent(t *testing.T) {
	store := setupAccountStore(t)
	r, token := buildProfileRouter(t, store, "bob", "oldpass123")

	w := postJSON(t, r, "/api/profile/password", map[string]string{
		"current_password": "nope",
		"new_password":     "newpass123",
		"confirm_password": "newpass123",
	}, token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIProfilePassword_Mismatch(t *testing.T) {
	store := setupAccountStore(t)
	r, token := buildProfileRouter(t, store, "carol", "oldpass123")

	w := postJSON(t, r, "/api/profile/password", map[string]string{
		"current_password": "oldpass123",
		"new_password":     "newpass123",
		"confirm_password": "different",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAPIProfilePassword_Weak(t *testing.T) {
	store := setupAccountStore(t)
	r, token := buildProfileRouter(t, store, "dave", "oldpass123")

	w := postJSON(t, r, "/api/profile/password", map[string]string{
		"current_password": "oldpass123",
		"new_password":     "short",
		"confirm_password": "short",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
