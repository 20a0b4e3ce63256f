package backup

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	rootBackupsFolderName = "fittrack-backup"
	folderMimeType        = "application/vnd.google-apps.folder"
)

type GoogleDriveBackupService struct {
	service         *drive.Service
	backupsFolderId string
	shareWith       string
}

// NewGoogleDriveBackupService finds the backups folder, creating it when missing.
// Files and the folder are shared read-only with shareWith, when set.
func NewGoogleDriveBackupService(ctx context.Context, shareWith string, opts ...option.ClientOption) (*GoogleDriveBackupService, error) {
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	s := &GoogleDriveBackupService{
		service:   driveService,
		shareWith: shareWith,
	}

	rootFolderQuery := fmt.Sprintf("mimeType = '%s' and trashed = false and name = '%s'", folderMimeType, rootBackupsFolderName)
	backupFolders, err := driveService.
		Files.List().
		Q(rootFolderQuery).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	switch len(backupFolders.Files) {
	case 0:
		log.Println("root backups folder not found, creating ...")
		s.backupsFolderId, err = s.createRootBackupsFolder(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create root backups folder: %w", err)
		}
		log.Printf("new root backups folder created: %s", s.backupsFolderId)
	case 1:
		s.backupsFolderId = backupFolders.Files[0].Id
		log.Printf("root backups folder found: %s", s.backupsFolderId)
	default:
		s.backupsFolderId = backupFolders.Files[0].Id
		log.Warnf("found %d root backups folders, will take the first one: %s", len(backupFolders.Files), s.backupsFolderId)
	}

	return s, nil
}

func (s *GoogleDriveBackupService) FolderID() string {
	return s.backupsFolderId
}

// DoBackup uploads the document as a new file and returns its drive id.
func (s *GoogleDriveBackupService) DoBackup(ctx context.Context, doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := Export(&buf, doc); err != nil {
		return "", err
	}

	fileName := FileName(doc.ExportedAt)
	fileMeta := &drive.File{
		Name:     fileName,
		MimeType: "application/json",
		Parents:  []string{s.backupsFolderId},
	}

	log.Printf("%s: uploading %d bytes ...", fileName, buf.Len())
	backupFile, err := s.service.
		Files.Create(fileMeta).
		Fields("id, parents").
		Media(&buf).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%s: failed to create backup file: %w", fileName, err)
	}

	if permissionId, err := s.shareFile(ctx, backupFile.Id); err != nil {
		return backupFile.Id, fmt.Errorf("%s: failed to create additional permission: %w", fileName, err)
	} else if permissionId != "" {
		log.Printf("%s: permission %s created", fileName, permissionId)
	}

	log.Printf("%s: backup file saved: %s", fileName, backupFile.Id)
	return backupFile.Id, nil
}

// Prune deletes all but the newest keep backup files.
func (s *GoogleDriveBackupService) Prune(ctx context.Context, keep int) (int, error) {
	files, err := s.backupFiles(ctx)
	if err != nil {
		return 0, err
	}
	if len(files) <= keep {
		return 0, nil
	}

	sort.Slice(files, func(i, j int) bool {
		return createdAt(files[i]).After(createdAt(files[j]))
	})

	deleted := 0
	for _, f := range files[keep:] {
		if err := s.service.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			return deleted, fmt.Errorf("delete backup file %s: %w", f.Name, err)
		}
		log.Printf("old backup file deleted: %s (%s)", f.Name, f.Id)
		deleted++
	}
	return deleted, nil
}

func createdAt(f *drive.File) time.Time {
	t, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		log.Printf(" ---> error parsing created at for file %s: %s", f.Name, err)
		return time.Time{}
	}
	return t
}

func (s *GoogleDriveBackupService) createRootBackupsFolder(ctx context.Context) (string, error) {
	backupsFolderMeta := &drive.File{
		Name:     rootBackupsFolderName,
		MimeType: folderMimeType,
	}

	bfRes, err := s.service.
		Files.Create(backupsFolderMeta).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	if _, err := s.shareFile(ctx, bfRes.Id); err != nil {
		return bfRes.Id, fmt.Errorf("failed to create additional permission for root backup folder: %w", err)
	}

	return bfRes.Id, nil
}

func (s *GoogleDriveBackupService) shareFile(ctx context.Context, fileId string) (string, error) {
	if s.shareWith == "" {
		return "", nil
	}

	permission := &drive.Permission{
		EmailAddress: s.shareWith,
		Type:         "user",
		Role:         "reader",
	}

	createdPermission, err := s.service.Permissions.
		Create(fileId, permission).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	return createdPermission.Id, nil
}

func (s *GoogleDriveBackupService) backupFiles(ctx context.Context) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", s.backupsFolderId, folderMimeType)
	backups, err := s.service.
		Files.List().
		Q(query).
		Fields("files(id, name, createdTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return backups.Files, nil
}
