package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amirk1998/stockkeeper/internal/logging"
	"github.com/amirk1998/stockkeeper/pkg/errors"
)

type fixture struct {
	dataDir string
	users   string
	stock   string
	manager *Manager
}

func newFixture(t *testing.T, key string) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{dataDir: filepath.Join(root, "data")}
	f.users = filepath.Join(f.dataDir, "users.csv")
	f.stock = filepath.Join(f.dataDir, "stock.csv")

	require.NoError(t, os.MkdirAll(f.dataDir, 0o700))
	require.NoError(t, os.WriteFile(f.users, []byte("Username,Hashed Password,Salt\n"), 0o600))
	require.NoError(t, os.WriteFile(f.stock, []byte("Id,Name\n1,Widget\n"), 0o600))

	m, err := NewManager(
		[]string{f.users, f.stock, filepath.Join(f.dataDir, "lockout.csv")},
		filepath.Join(root, "backups"), key, 30, logging.NewNop())
	require.NoError(t, err)
	f.manager = m
	return f
}

func TestCreateAndRestore(t *testing.T) {
	for _, key := range []string{"", "a-long-enough-backup-key"} {
		t.Run("key="+key, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, key)

			path, err := f.manager.CreateBackup(ctx)
			require.NoError(t, err)
			require.Equal(t, key != "", strings.HasSuffix(path, encryptedExt))
			require.FileExists(t, path+checksumExt)
			require.NoError(t, f.manager.VerifyBackup(path))

			require.NoError(t, os.WriteFile(f.stock, []byte("Id,Name\n"), 0o600))
			require.NoError(t, os.Remove(f.users))

			restored, err := f.manager.RestoreBackup(ctx, path)
			require.NoError(t, err)
			require.Equal(t, 2, restored)

			data, err := os.ReadFile(f.stock)
			require.NoError(t, err)
			require.Equal(t, "Id,Name\n1,Widget\n", string(data))
			require.FileExists(t, f.users)
		})
	}
}

func TestVerifyBackup_DetectsTampering(t *testing.T) {
	f := newFixture(t, "")
	path, err := f.manager.CreateBackup(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o600))

	require.ErrorIs(t, f.manager.VerifyBackup(path), errors.ErrBackupCorrupt)

	_, err = f.manager.RestoreBackup(context.Background(), path)
	require.ErrorIs(t, err, errors.ErrBackupCorrupt)

	require.ErrorIs(t, f.manager.VerifyBackup(path+".missing"), errors.ErrBackupNotFound)
}

func TestRestore_EncryptedWithoutKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a-long-enough-backup-key")
	path, err := f.manager.CreateBackup(ctx)
	require.NoError(t, err)

	f.manager.encryptor = nil
	_, err = f.manager.RestoreBackup(ctx, path)
	require.ErrorIs(t, err, errors.ErrBackupFailed)
}

func TestCreateBackup_NothingToArchive(t *testing.T) {
	m, err := NewManager([]string{filepath.Join(t.TempDir(), "missing.csv")}, t.TempDir(), "", 30, logging.NewNop())
	require.NoError(t, err)

	_, err = m.CreateBackup(context.Background())
	require.ErrorIs(t, err, errors.ErrBackupFailed)
}

func TestListAndCleanOldBackups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")

	first, err := f.manager.CreateBackup(ctx)
	require.NoError(t, err)
	second, err := f.manager.CreateBackup(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	backups, err := f.manager.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)

	old := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(first, old, old))
	require.NoError(t, os.Chtimes(first+checksumExt, old, old))

	deleted, err := f.manager.CleanOldBackups(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	backups, err = f.manager.ListBackups()
	require.NoError(t, err)
	require.Equal(t, []string{second}, backups)
}
