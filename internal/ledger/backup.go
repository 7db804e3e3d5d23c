package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// FileBackupService implements service.BackupService by copying the book
// file aside with a timestamped name.
type FileBackupService struct {
	bookPath string
	now      func() time.Time
}

// NewFileBackupService creates a backup service for the given book file.
func NewFileBackupService(bookPath string) *FileBackupService {
	return &FileBackupService{bookPath: bookPath, now: time.Now}
}

// CreateBackup copies the book to <book>.backup_YYYYMMDD_HHMMSS.gnucash and
// returns the backup path.
func (s *FileBackupService) CreateBackup() (string, error) {
	stamp := s.now().Format("20060102_150405")
	backupPath := fmt.Sprintf("%s.backup_%s.gnucash", s.bookPath, stamp)

	src, err := os.Open(s.bookPath)
	if err != nil {
		return "", fmt.Errorf("failed to open book for backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}

	slog.Info("Created book backup", "path", backupPath)
	return backupPath, nil
}
