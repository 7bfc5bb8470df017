package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/amirk1998/stockkeeper/internal/logging"
	"github.com/amirk1998/stockkeeper/internal/security"
	"github.com/amirk1998/stockkeeper/pkg/errors"
)

const (
	backupPrefix   = "backup_"
	archiveExt     = ".tar.gz"
	encryptedExt   = ".enc"
	checksumExt    = ".sha256"
	timestampStyle = "20060102_150405"
)

// Manager snapshots the flat data files into compressed, optionally
// encrypted archives.
type Manager struct {
	files         []string
	backupDir     string
	encryptor     *security.Encryptor
	retentionDays int
	log           logging.Logger
	now           func() time.Time
}

// NewManager creates a new backup manager. Backups are encrypted only when
// encryptionKey is set.
func NewManager(files []string, backupDir, encryptionKey string, retentionDays int, log logging.Logger) (*Manager, error) {
	// Ensure backup directory exists with secure permissions
	if err := os.MkdirAll(backupDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	m := &Manager{
		files:         files,
		backupDir:     backupDir,
		retentionDays: retentionDays,
		log:           log,
		now:           time.Now,
	}

	if encryptionKey != "" {
		enc, err := security.NewEncryptor(security.DeriveKey(encryptionKey))
		if err != nil {
			return nil, err
		}
		m.encryptor = enc
	}

	return m, nil
}

// CreateBackup archives every existing data file and returns the backup path
func (m *Manager) CreateBackup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	archive, count, err := m.archive()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrBackupFailed, err)
	}
	if count == 0 {
		return "", fmt.Errorf("%w: no data files to back up", errors.ErrBackupFailed)
	}

	ext := archiveExt
	if m.encryptor != nil {
		archive, err = m.encryptor.Encrypt(archive)
		if err != nil {
			return "", fmt.Errorf("%w: %w", errors.ErrBackupFailed, err)
		}
		ext += encryptedExt
	}

	backupPath := m.nextPath(ext)
	if err := os.WriteFile(backupPath, archive, 0600); err != nil {
		return "", fmt.Errorf("%w: failed to write backup: %w", errors.ErrBackupFailed, err)
	}

	// Create checksum file
	if err := m.createChecksumFile(backupPath, archive); err != nil {
		return "", fmt.Errorf("%w: failed to create checksum: %w", errors.ErrBackupFailed, err)
	}

	m.log.Info(ctx, "backup created", "path", backupPath, "files", count, "encrypted", m.encryptor != nil)
	return backupPath, nil
}

// nextPath picks an unused timestamped file name.
func (m *Manager) nextPath(ext string) string {
	base := backupPrefix + m.now().Format(timestampStyle)
	path := filepath.Join(m.backupDir, base+ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s-%d%s", base, n, ext))
	}
}

// archive builds a gzip-compressed tarball of the data files.
func (m *Manager) archive() ([]byte, int, error) {
	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzWriter)

	count := 0
	for _, path := range m.files {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
		}

		hdr := &tar.Header{
			Name:    filepath.Base(path),
			Mode:    0600,
			Size:    int64(len(data)),
			ModTime: m.now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, 0, err
		}
		if _, err := tw.Write(data); err != nil {
			return nil, 0, err
		}
		count++
	}

	if err := tw.Close(); err != nil {
		return nil, 0, err
	}
	if err := gzWriter.Close(); err != nil {
		return nil, 0, err
	}

	return buf.Bytes(), count, nil
}

// createChecksumFile creates SHA-256 checksum file
func (m *Manager) createChecksumFile(filePath string, data []byte) error {
	hash := sha256.Sum256(data)
	return os.WriteFile(filePath+checksumExt, []byte(fmt.Sprintf("%x", hash)), 0600)
}

// VerifyBackup verifies backup integrity
func (m *Manager) VerifyBackup(backupPath string) error {
	// Read stored checksum
	storedChecksum, err := os.ReadFile(backupPath + checksumExt)
	if os.IsNotExist(err) {
		return errors.ErrBackupNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read checksum file: %w", err)
	}

	// Calculate current checksum
	data, err := os.ReadFile(backupPath)
	if os.IsNotExist(err) {
		return errors.ErrBackupNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	hash := sha256.Sum256(data)
	if fmt.Sprintf("%x", hash) != strings.TrimSpace(string(storedChecksum)) {
		return errors.ErrBackupCorrupt
	}

	return nil
}

// RestoreBackup verifies a backup and writes its files back over the data
// files with the same base name. Unknown archive entries are ignored.
func (m *Manager) RestoreBackup(ctx context.Context, backupPath string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := m.VerifyBackup(backupPath); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup file: %w", err)
	}

	if strings.HasSuffix(backupPath, encryptedExt) {
		if m.encryptor == nil {
			return 0, fmt.Errorf("%w: backup is encrypted but no key is configured", errors.ErrBackupFailed)
		}
		if data, err = m.encryptor.Decrypt(data); err != nil {
			return 0, fmt.Errorf("%w: %w", errors.ErrBackupFailed, err)
		}
	}

	targets := make(map[string]string, len(m.files))
	for _, path := range m.files {
		targets[filepath.Base(path)] = path
	}

	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errors.ErrBackupCorrupt, err)
	}
	defer gzReader.Close()

	restored := 0
	tr := tar.NewReader(gzReader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return restored, fmt.Errorf("%w: %w", errors.ErrBackupCorrupt, err)
		}

		target, ok := targets[hdr.Name]
		if !ok {
			continue
		}
		contents, err := io.ReadAll(tr)
		if err != nil {
			return restored, fmt.Errorf("%w: %w", errors.ErrBackupCorrupt, err)
		}
		if err := writeAtomic(target, contents); err != nil {
			return restored, fmt.Errorf("%w: %w", errors.ErrStorage, err)
		}
		restored++
	}

	m.log.Info(ctx, "backup restored", "path", backupPath, "files", restored)
	return restored, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	tmp := path + ".restore"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ListBackups returns backup archives, newest first
func (m *Manager) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || strings.HasSuffix(name, checksumExt) {
			continue
		}
		backups = append(backups, filepath.Join(m.backupDir, name))
	}

	slices.Sort(backups)
	slices.Reverse(backups)
	return backups, nil
}

// CleanOldBackups removes old backups based on retention policy
func (m *Manager) CleanOldBackups(ctx context.Context) (int, error) {
	cutoffTime := m.now().AddDate(0, 0, -m.retentionDays)

	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	deletedCount := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		// Delete old backups
		if info.ModTime().Before(cutoffTime) {
			filePath := filepath.Join(m.backupDir, entry.Name())
			if err := os.Remove(filePath); err != nil {
				m.log.Warn(ctx, "failed to delete old backup", "path", filePath, "error", err)
				continue
			}
			deletedCount++
		}
	}

	if deletedCount > 0 {
		m.log.Info(ctx, "cleaned old backup files", "count", deletedCount)
	}

	return deletedCount, nil
}
