package station

import (
	"testing"

	"github.com/AndreasAanestad/websync-station/internal/utils"
)

func TestUserStore_CreateAndReload(t *testing.T) {
	paths := utils.NewPaths(t.TempDir())
	store := NewUserStore(paths)
	if err := store.Load(); err != nil {
		t.Fatalf("expected a missing store to load empty, got %v", err)
	}
	if !store.IsEmpty() {
		t.Fatalf("expected a fresh store to be empty")
	}

	if _, err := store.CreateUser("admin", "hash", RoleAdmin); err != nil {
		t.Fatalf("expected account creation to succeed, got %v", err)
	}
	if _, err := store.CreateUser("admin", "hash", RoleAdmin); err == nil {
		t.Fatalf("expected a duplicate username to be rejected")
	}

	reloaded := NewUserStore(paths)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("expected the store to reload, got %v", err)
	}
	u, ok := reloaded.Get("admin")
	if !ok || u.Role != RoleAdmin || u.PasswordHash != "hash" {
		t.Fatalf("expected the persisted account to survive a reload, got %+v", u)
	}
}

func TestUserStore_RolesAndDeletion(t *testing.T) {
	store := NewUserStore(utils.NewPaths(t.TempDir()))
	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if _, err := store.CreateUser("admin", "hash", RoleAdmin); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := store.CreateUser("watcher", "hash", RoleViewer); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if store.AdminCount() != 1 {
		t.Fatalf("expected one admin, got %d", store.AdminCount())
	}

	if err := store.SetRole("watcher", RoleOperator); err != nil {
		t.Fatalf("role change failed: %v", err)
	}
	u, _ := store.Get("watcher")
	if u.Role != RoleOperator {
		t.Fatalf("expected the role change to stick, got %q", u.Role)
	}

	if err := store.Delete("watcher"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := store.Get("watcher"); ok {
		t.Fatalf("expected the deleted account to be gone")
	}
	if err := store.Delete("watcher"); err == nil {
		t.Fatalf("expected deleting a missing account to fail")
	}
}
