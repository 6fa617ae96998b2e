package app

import (
	"fmt"
	"time"

	"claim-evaluator/internal/scanner"
)

type FileListing struct {
	Files          []scanner.FileInfo `json:"files"`
	TotalFiles     int                `json:"totalFiles"`
	SupportedFiles int                `json:"supportedFiles"`
	LastScanned    time.Time          `json:"lastScanned"`
}

type ScanRequest struct {
	Directories []string
	Limit       int
	FileTypes   []string
}

type ScanResult struct {
	Files              []scanner.FileInfo `json:"files"`
	TotalFound         int                `json:"totalFound"`
	DirectoriesScanned []string           `json:"directoriesScanned"`
	SupportedFiles     int                `json:"supportedFiles"`
	LastScanned        time.Time          `json:"lastScanned"`
	Message            string             `json:"message"`
}

type FileService struct {
	documentsDir string
	defaultDirs  []string
	defaultLimit int
	defaultTypes []string
	now          func() time.Time
}

func NewFileService(documentsDir string, defaultDirs []string, defaultLimit int, defaultTypes []string) *FileService {
	return &FileService{
		documentsDir: documentsDir,
		defaultDirs:  defaultDirs,
		defaultLimit: defaultLimit,
		defaultTypes: defaultTypes,
		now:          time.Now,
	}
}

func (s *FileService) DocumentsDir() string {
	return s.documentsDir
}

// Latest lists the documents folder, newest first.
func (s *FileService) Latest() (*FileListing, error) {
	if err := requireDirectory(s.documentsDir); err != nil {
		return nil, notFoundErrorf("Documents folder not found")
	}
	files, err := scanner.ListFiles(s.documentsDir)
	if err != nil {
		return nil, err
	}
	return &FileListing{
		Files:          files,
		TotalFiles:     len(files),
		SupportedFiles: scanner.CountSupported(files),
		LastScanned:    s.now().UTC(),
	}, nil
}

// Scan looks through the default directories plus req.Directories.
func (s *FileService) Scan(req ScanRequest) *ScanResult {
	dirs := append(append([]string{}, s.defaultDirs...), req.Directories...)
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	types := req.FileTypes
	if len(types) == 0 {
		types = s.defaultTypes
	}

	all, scanned := scanner.ScanDirectories(dirs, scanner.ParseExtensions(types), 0)
	files := all
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	if files == nil {
		files = []scanner.FileInfo{}
	}
	if scanned == nil {
		scanned = []string{}
	}
	return &ScanResult{
		Files:              files,
		TotalFound:         len(all),
		DirectoriesScanned: scanned,
		SupportedFiles:     scanner.CountSupported(files),
		LastScanned:        s.now().UTC(),
		Message:            fmt.Sprintf("Found %d recent files from %d directories", len(files), len(scanned)),
	}
}
