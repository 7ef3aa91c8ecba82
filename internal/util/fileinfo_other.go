//go:build !linux

package util

import (
	"fmt"
	"os"
	"time"
)

// FileInfo contains the stat fields the scanner needs: modification time,
// size, and inode number (always zero on this platform).
type FileInfo struct {
	ModTime time.Time
	Size    int64
	Inode   uint64
}

// GetFileInfo stats a path.
func GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &FileInfo{ModTime: stat.ModTime(), Size: stat.Size()}, nil
}
