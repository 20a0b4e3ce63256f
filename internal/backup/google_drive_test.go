package backup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu          sync.Mutex
	folders     []map[string]string
	files       []map[string]string
	uploads     []string
	permissions []string
	deleted     []string
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		files := d.files
		if strings.Contains(r.URL.Query().Get("q"), "name = 'fittrack-backup'") {
			files = d.folders
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/permissions"):
		d.permissions = append(d.permissions, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "perm-1"})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		if r.URL.Query().Get("uploadType") == "" {
			d.folders = append(d.folders, map[string]string{"id": "folder-1", "name": "fittrack-backup"})
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "folder-1"})
			return
		}
		body, _ := io.ReadAll(r.Body)
		d.uploads = append(d.uploads, string(body))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "backup-1", "parents": []string{"folder-1"}})
	case r.Method == http.MethodDelete:
		d.deleted = append(d.deleted, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakeDriveService(t *testing.T, d *fakeDrive, shareWith string) *GoogleDriveBackupService {
	t.Helper()
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	s, err := NewGoogleDriveBackupService(
		context.Background(),
		shareWith,
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return s
}

func TestGoogleDriveBackupService_CreatesFolderAndUploads(t *testing.T) {
	d := &fakeDrive{}
	s := newFakeDriveService(t, d, "me@example.com")
	assert.Equal(t, "folder-1", s.FolderID())

	doc, err := Collect(context.Background(), &fakeSource{snapshot: testSnapshot()}, time.Date(2024, 1, 6, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	fileID, err := s.DoBackup(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "backup-1", fileID)

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.uploads, 1)
	assert.Contains(t, d.uploads[0], "fittrack-20240106-183000.json")
	assert.Contains(t, d.uploads[0], `"Hardgainer"`)
	// folder and file are both shared
	assert.Len(t, d.permissions, 2)
}

func TestGoogleDriveBackupService_ExistingFolderAndPrune(t *testing.T) {
	d := &fakeDrive{
		folders: []map[string]string{{"id": "existing", "name": "fittrack-backup"}},
		files: []map[string]string{
			{"id": "f1", "name": "fittrack-1.json", "createdTime": "2024-01-01T10:00:00Z"},
			{"id": "f3", "name": "fittrack-3.json", "createdTime": "2024-01-03T10:00:00Z"},
			{"id": "f2", "name": "fittrack-2.json", "createdTime": "2024-01-02T10:00:00Z"},
		},
	}
	s := newFakeDriveService(t, d, "")
	assert.Equal(t, "existing", s.FolderID())

	deleted, err := s.Prune(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	deleted, err = s.Prune(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, []string{"f2", "f1"}, d.deleted)
	assert.Empty(t, d.permissions)
}
