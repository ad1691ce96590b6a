package backup_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/backup"
)

func TestCreateArtifact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.db")
	require.NoError(t, os.WriteFile(src, []byte("sqlite-bytes"), 0644))

	now := time.Now()
	destDir := filepath.Join(dir, "backups")
	path, err := backup.CreateArtifact(src, destDir, now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(destDir, fmt.Sprintf("backup-%d.db", now.UnixMilli())), path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("sqlite-bytes"), content)
}

func TestCreateArtifactMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := backup.CreateArtifact(filepath.Join(dir, "missing.db"), dir, time.Now())
	assert.Error(t, err)
}

func TestRotateKeepsNewest(t *testing.T) {
	dir := t.TempDir()

	// 五个备份，修改时间依次变新
	base := time.Now().Add(-time.Hour)
	var paths []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, fmt.Sprintf("backup-%d.db", i))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
		mt := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(p, mt, mt))
		paths = append(paths, p)
	}
	// 干扰文件不参与轮换
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))

	deleted, err := backup.Rotate(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	assert.NoFileExists(t, paths[0])
	assert.NoFileExists(t, paths[1])
	assert.NoFileExists(t, paths[2])
	assert.FileExists(t, paths[3])
	assert.FileExists(t, paths[4])
	assert.FileExists(t, other)
}

func TestRotateUnderLimit(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "backup-1.db")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))

	deleted, err := backup.Rotate(dir, 5)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.FileExists(t, p)
}

func TestRotateNonPositiveKeep(t *testing.T) {
	deleted, err := backup.Rotate(t.TempDir(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
