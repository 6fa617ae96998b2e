// Package scanner lists document folders for the file inventory views.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/times"
)

// SupportedExtensions are the extensions the document parser can ingest.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xlsx": true,
	".xls":  true,
	".txt":  true,
	".tex":  true,
}

// FileInfo is a point-in-time view of one file. It is recomputed on every scan.
type FileInfo struct {
	Filename      string    `json:"filename"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"sizeFormatted"`
	ModifiedTime  time.Time `json:"modifiedTime"`
	CreatedTime   time.Time `json:"createdTime"`
	Extension     string    `json:"extension"`
	IsSupported   bool      `json:"isSupported"`
	FullPath      string    `json:"fullPath"`
	Directory     string    `json:"directory"`
}

// Skipped reports whether a directory entry is hidden or an office lock file.
func Skipped(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}

// Extension returns the lowercase extension of name including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsSupported reports whether name has an ingestible extension.
func IsSupported(name string) bool {
	return SupportedExtensions[Extension(name)]
}

// ListFiles returns the regular files of directory, newest first. Entries that
// cannot be stat'ed are skipped; a missing or unreadable directory is an error.
func ListFiles(directory string) ([]FileInfo, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("read directory %s failed: %w", directory, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if Skipped(entry.Name()) || entry.IsDir() {
			continue
		}
		info, ok := stat(directory, entry)
		if !ok {
			continue
		}
		files = append(files, info)
	}
	SortNewestFirst(files)
	return files, nil
}

// ListSupported returns the ingestible files of directory in name order, the
// order batch loads process them in.
func ListSupported(directory string) ([]FileInfo, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("read directory %s failed: %w", directory, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if Skipped(entry.Name()) || entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		if info, ok := stat(directory, entry); ok {
			files = append(files, info)
		}
	}
	return files, nil
}

// ScanDirectories walks the top level of each directory, keeping regular files
// whose extension is in allowed. Unreadable directories and files are skipped.
// The merged result is sorted newest first and truncated to limit (limit <= 0
// means no truncation). The second return value lists the directories that
// were actually read.
func ScanDirectories(directories []string, allowed map[string]bool, limit int) ([]FileInfo, []string) {
	var (
		files   []FileInfo
		scanned []string
		seen    = make(map[string]bool, len(directories))
	)
	for _, dir := range directories {
		dir = filepath.Clean(dir)
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		scanned = append(scanned, dir)

		for _, entry := range entries {
			if Skipped(entry.Name()) || !entry.Type().IsRegular() {
				continue
			}
			if len(allowed) > 0 && !allowed[Extension(entry.Name())] {
				continue
			}
			info, ok := stat(dir, entry)
			if !ok {
				continue
			}
			files = append(files, info)
		}
	}

	SortNewestFirst(files)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, scanned
}

// SortNewestFirst orders files by modification time descending, keeping the
// encounter order of ties.
func SortNewestFirst(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModifiedTime.After(files[j].ModifiedTime)
	})
}

// CountSupported returns how many files carry an ingestible extension.
func CountSupported(files []FileInfo) int {
	n := 0
	for _, f := range files {
		if f.IsSupported {
			n++
		}
	}
	return n
}

// ParseExtensions turns "pdf, .DOCX" style input into a lookup set.
func ParseExtensions(list []string) map[string]bool {
	out := make(map[string]bool, len(list))
	for _, raw := range list {
		ext := strings.ToLower(strings.TrimSpace(raw))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = true
	}
	return out
}

func stat(dir string, entry os.DirEntry) (FileInfo, bool) {
	fi, err := entry.Info()
	if err != nil || !fi.Mode().IsRegular() {
		return FileInfo{}, false
	}
	ext := Extension(entry.Name())
	return FileInfo{
		Filename:      entry.Name(),
		Size:          fi.Size(),
		SizeFormatted: FormatSize(fi.Size()),
		ModifiedTime:  fi.ModTime(),
		CreatedTime:   createdTime(fi),
		Extension:     ext,
		IsSupported:   SupportedExtensions[ext],
		FullPath:      filepath.Join(dir, entry.Name()),
		Directory:     dir,
	}, true
}

func createdTime(fi os.FileInfo) time.Time {
	ts := times.Get(fi)
	switch {
	case ts.HasBirthTime():
		return ts.BirthTime()
	case ts.HasChangeTime():
		return ts.ChangeTime()
	default:
		return fi.ModTime()
	}
}
