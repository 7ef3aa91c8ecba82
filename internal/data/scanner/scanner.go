package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-molty-meter/internal/util"
)

// FileScanner finds session logs below one or more root directories.
type FileScanner struct {
	roots   []string
	pattern string
}

// Candidate is a log file together with the stat taken while scanning.
type Candidate struct {
	Path string
	Info *util.FileInfo
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(roots ...string) *FileScanner {
	return &FileScanner{
		roots:   roots,
		pattern: ".jsonl",
	}
}

// Roots returns the directories the scanner walks.
func (s *FileScanner) Roots() []string {
	return s.roots
}

// Scan returns every .jsonl path below the roots. Unreadable entries and
// missing roots are skipped.
func (s *FileScanner) Scan() ([]string, error) {
	candidates, err := s.walk(time.Time{})
	if err != nil {
		return nil, err
	}
	files := make([]string, len(candidates))
	for i, c := range candidates {
		files[i] = c.Path
	}
	return files, nil
}

// ScanModifiedSince returns the logs last modified at or after since. The
// mtime check happens before anything is parsed.
func (s *FileScanner) ScanModifiedSince(since time.Time) ([]Candidate, error) {
	return s.walk(since)
}

// Latest returns the most recently modified log below the roots.
func (s *FileScanner) Latest() (string, bool) {
	candidates, err := s.walk(time.Time{})
	if err != nil || len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Info.ModTime.After(candidates[j].Info.ModTime)
	})
	return candidates[0].Path, true
}

func (s *FileScanner) walk(since time.Time) ([]Candidate, error) {
	start := time.Now()
	var files []Candidate
	dirCount := 0
	totalCount := 0
	skipped := 0

	for _, root := range s.roots {
		util.LogDebug(fmt.Sprintf("Start scanning directory: %s", root))

		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				util.LogDebug(fmt.Sprintf("Skip file (error): %s - %v", path, err))
				return nil
			}

			if info.IsDir() {
				dirCount++
				return nil
			}

			totalCount++
			if !strings.HasSuffix(strings.ToLower(path), s.pattern) {
				return nil
			}

			fi, err := util.GetFileInfo(path)
			if err != nil {
				util.LogDebug(fmt.Sprintf("Skip file (stat): %s - %v", path, err))
				return nil
			}
			if !since.IsZero() && fi.ModTime.Before(since) {
				skipped++
				return nil
			}

			files = append(files, Candidate{Path: path, Info: fi})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, %d files, found %d JSONL files, %d older than cutoff",
		time.Since(start), dirCount, totalCount, len(files), skipped))

	return files, nil
}
