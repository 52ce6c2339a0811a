package station

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AndreasAanestad/websync-station/internal/models"
)

type restorePart struct {
	filename string
	content  string
}

func seedRestoreTarget(t *testing.T, s *Station, restoreURL string) *models.BackupTarget {
	t.Helper()
	target := &models.BackupTarget{
		Description: "site",
		URL:         "http://example.com/pull",
		Restore:     restoreURL,
		Interval:    "h",
		Max:         3,
	}
	s.Backups = []*models.BackupTarget{target}
	dir := s.Paths.BackupDir("site")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create backup folder: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("failed to seed artifact: %v", err)
	}
	target.Records = []models.BackupRecord{{Filename: "data.bin"}}
	return target
}

func TestRestoreBackup_PostsArtifact(t *testing.T) {
	parts := make(chan restorePart, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		parts <- restorePart{filename: header.Filename, content: string(content)}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := newTestStation(t)
	seedRestoreTarget(t, s, server.URL)

	if err := s.RestoreBackup("site", "data.bin"); err != nil {
		t.Fatalf("expected the restore to succeed, got %v", err)
	}

	part := <-parts
	if part.filename != "data.bin" || part.content != "payload" {
		t.Fatalf("expected the artifact in the file part, got %+v", part)
	}
	if !containsMessage(auditMessages(s), "Successfully restored file data.bin from site") {
		t.Fatalf("expected the restore audit, got %+v", auditMessages(s))
	}
}

func TestRestoreBackup_FailureAudited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := newTestStation(t)
	seedRestoreTarget(t, s, server.URL)

	if err := s.RestoreBackup("site", "data.bin"); err == nil {
		t.Fatalf("expected the failed restore to surface an error")
	}

	found := false
	for _, m := range auditMessages(s) {
		if strings.HasPrefix(m, "Failed to restore file data.bin from site: ") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the failure audit, got %+v", auditMessages(s))
	}
}

func TestRestoreBackup_RejectsUnknownRecord(t *testing.T) {
	s := newTestStation(t)
	seedRestoreTarget(t, s, "http://example.com/restore")

	if err := s.RestoreBackup("site", "other.bin"); err == nil {
		t.Fatalf("expected an error for a filename missing from the retention log")
	}
	if err := s.RestoreBackup("nope", "data.bin"); err == nil {
		t.Fatalf("expected an error for an unknown target")
	}
}

func TestRestoreBackup_RejectsTraversalRecord(t *testing.T) {
	s := newTestStation(t)
	target := seedRestoreTarget(t, s, "http://example.com/restore")
	target.Records = append(target.Records, models.BackupRecord{Filename: "../escape"})

	if err := s.RestoreBackup("site", "../escape"); err == nil {
		t.Fatalf("expected a traversal filename to be rejected")
	}
}

func TestRestoreBackup_RequiresRestoreRoute(t *testing.T) {
	s := newTestStation(t)
	seedRestoreTarget(t, s, "")

	if err := s.RestoreBackup("site", "data.bin"); err == nil {
		t.Fatalf("expected an error when no restore route is configured")
	}
}
