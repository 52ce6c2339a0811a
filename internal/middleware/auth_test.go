package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AndreasAanestad/websync-station/internal/station"
	"github.com/AndreasAanestad/websync-station/internal/utils"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	auth, err := NewAuthService(1)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return auth
}

func TestTokenRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	token, err := auth.GenerateToken("operator1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username != "operator1" {
		t.Fatalf("expected username operator1, got %q", claims.Username)
	}
}

func TestTokenRejectedAcrossRestarts(t *testing.T) {
	first := newTestAuth(t)
	second := newTestAuth(t)

	token, err := first.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := second.ValidateToken(token); err == nil {
		t.Fatal("expected a token from another boot to be rejected")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	hash, err := auth.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !auth.CheckPassword("hunter2hunter2", hash) {
		t.Fatal("expected matching password to verify")
	}
	if auth.CheckPassword("wrong", hash) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestRequireAPIAuthAcceptsCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuth(t)

	r := gin.New()
	r.GET("/api/me", auth.RequireAPIAuth(), func(c *gin.Context) {
		username := c.GetString("username")
		c.JSON(http.StatusOK, gin.H{"username": username})
	})

	token, err := auth.GenerateToken("viewer7")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with session cookie, got %d", w.Code)
	}
}

func TestRequireAPIAuthLocksOutAfterRepeatedFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuth(t)

	r := gin.New()
	r.GET("/api/me", auth.RequireAPIAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.RemoteAddr = "10.9.9.9:1234"
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected lockout (429) on third bad attempt, got %d", last)
	}

	// Locked out even with a valid token until the lockout expires
	token, err := auth.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.RemoteAddr = "10.9.9.9:1234"
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected lockout to persist, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header during lockout")
	}
}

func TestSetAuthCookieFlags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuth(t)

	r := gin.New()
	r.GET("/api/login", func(c *gin.Context) {
		auth.SetAuthCookie(c, "tok")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	res := w.Result()
	cookies := res.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != CookieName {
		t.Fatalf("expected cookie %q, got %q", CookieName, cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Fatal("expected HttpOnly cookie")
	}
	if cookie.MaxAge != 3600 {
		t.Fatalf("expected MaxAge to follow session hours (3600), got %d", cookie.MaxAge)
	}
}

func TestRequireRoleGates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := station.NewUserStore(utils.NewPaths(t.TempDir()))
	if err := users.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := users.CreateUser("alice", "x", station.RoleViewer); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := users.CreateUser("root", "x", station.RoleAdmin); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	r := gin.New()
	r.GET("/api/run",
		func(c *gin.Context) { c.Set("username", c.Query("as")); c.Next() },
		EnsureRoleContext(users, nil),
		RequireRole(station.RoleOperator),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)

	viewer := httptest.NewRequest(http.MethodGet, "/api/run?as=alice", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, viewer)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected viewer to be forbidden, got %d", w.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/run?as=root", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, admin)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected admin to pass an operator gate, got %d", w2.Code)
	}
}

func TestEnsureRoleContextPromotesOrphanAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := station.NewUserStore(utils.NewPaths(t.TempDir()))
	if err := users.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := users.CreateUser("admin", "x", station.RoleViewer); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	r := gin.New()
	r.GET("/api/any",
		func(c *gin.Context) { c.Set("username", "admin"); c.Next() },
		EnsureRoleContext(users, nil),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"role": c.GetString("role")}) },
	)

	req := httptest.NewRequest(http.MethodGet, "/api/any", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	u, ok := users.Get("admin")
	if !ok {
		t.Fatal("expected admin account to exist")
	}
	if u.Role != station.RoleAdmin {
		t.Fatalf("expected auto-promotion to admin, got %q", u.Role)
	}
}
