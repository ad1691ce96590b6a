package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// CreateArtifact 把SQLite数据库文件复制为一个带时间戳的备份文件，
// 返回备份文件的完整路径。目标目录不存在时会自动创建。
func CreateArtifact(srcPath, destDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("无法创建备份目录 %s: %w", destDir, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("无法打开数据库文件 %s: %w", srcPath, err)
	}
	defer src.Close()

	destPath := filepath.Join(destDir, fmt.Sprintf("backup-%d.db", now.UnixMilli()))
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("无法创建备份文件 %s: %w", destPath, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("复制备份内容失败: %w", err)
	}
	return destPath, nil
}

// Rotate 按修改时间从新到旧保留keep个.db备份文件，删除其余，
// 返回被删除的数量。keep小于等于0时不做任何事。
func Rotate(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("无法读取备份目录 %s: %w", dir, err)
	}

	type artifact struct {
		path    string
		modTime time.Time
	}
	var artifacts []artifact
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifact{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].modTime.After(artifacts[j].modTime)
	})

	deleted := 0
	for _, old := range artifacts[min(keep, len(artifacts)):] {
		if err := os.Remove(old.path); err != nil {
			return deleted, fmt.Errorf("删除旧备份 %s 失败: %w", old.path, err)
		}
		deleted++
	}
	return deleted, nil
}
