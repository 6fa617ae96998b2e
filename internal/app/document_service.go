package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"claim-evaluator/internal/blob"
	"claim-evaluator/internal/model"
	"claim-evaluator/internal/parser"
	"claim-evaluator/internal/repository"
	"claim-evaluator/internal/scanner"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// UploadFile is one part of a multipart upload.
type UploadFile struct {
	Filename string
	Mimetype string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

type ProcessedCount struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

type BatchLoadResult struct {
	Documents  []model.Document `json:"documents"`
	Message    string           `json:"message"`
	Processed  ProcessedCount   `json:"processed"`
	TotalFiles int              `json:"totalFiles"`
}

// DocumentService parses uploads with uploadParser, which must not cache:
// upload spool files are deleted once parsed. Folder files are stable and go
// through folderParser.
type DocumentService struct {
	repo         *repository.DocumentRepository
	uploadParser parser.Parser
	folderParser parser.Parser
	blobs        blob.Store
	maxFileSize  int64
	logger       *slog.Logger
	now          func() time.Time
}

func NewDocumentService(
	repo *repository.DocumentRepository,
	uploadParser parser.Parser,
	folderParser parser.Parser,
	blobs blob.Store,
	maxFileSize int64,
	logger *slog.Logger,
) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		repo:         repo,
		uploadParser: uploadParser,
		folderParser: folderParser,
		blobs:        blobs,
		maxFileSize:  maxFileSize,
		logger:       logger,
		now:          time.Now,
	}
}

// Upload stores and parses every file. The whole request is rejected when
// any file has an unsupported type or exceeds the size limit; parse failures
// are recorded on the document and do not fail the request.
func (s *DocumentService) Upload(ctx context.Context, files []UploadFile) ([]model.Document, error) {
	if len(files) == 0 {
		return nil, validationErrorf("No files uploaded")
	}
	for i := range files {
		files[i].Mimetype = normalizeMimeType(files[i].Mimetype)
		if !parser.SupportedMimeTypes[files[i].Mimetype] {
			return nil, validationErrorf("Unsupported file type: %s. Please upload PDF, Word, Excel, or text files only.", files[i].Mimetype)
		}
		if files[i].Size > s.maxFileSize {
			return nil, validationErrorf("File too large. Maximum size is %dMB.", s.maxFileSize>>20)
		}
	}

	docs := make([]model.Document, 0, len(files))
	for _, f := range files {
		doc, err := s.ingestUpload(ctx, f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *DocumentService) ingestUpload(ctx context.Context, f UploadFile) (*model.Document, error) {
	src, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s failed: %w", f.Filename, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "claim-upload-*"+scanner.Extension(f.Filename))
	if err != nil {
		return nil, fmt.Errorf("create upload spool failed: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, io.LimitReader(src, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("spool upload %s failed: %w", f.Filename, err)
	}
	if size > s.maxFileSize {
		return nil, validationErrorf("File too large. Maximum size is %dMB.", s.maxFileSize>>20)
	}

	storageName := s.storageName(f.Filename)
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload spool failed: %w", err)
	}
	if err := s.blobs.Put(ctx, storageName, f.Mimetype, tmp, size); err != nil {
		return nil, fmt.Errorf("store upload %s failed: %w", f.Filename, err)
	}

	doc := &model.Document{
		Filename:     storageName,
		OriginalName: f.Filename,
		Mimetype:     f.Mimetype,
		Size:         size,
	}
	if err := s.repo.Create(doc); err != nil {
		return nil, err
	}
	if _, err := s.parseAndRecord(ctx, s.uploadParser, doc, tmp.Name()); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadDirectory ingests every supported file in dir, one at a time in name
// order. A file that fails to parse is recorded as failed and the batch
// continues.
func (s *DocumentService) LoadDirectory(ctx context.Context, dir string) (*BatchLoadResult, error) {
	if err := requireDirectory(dir); err != nil {
		return nil, err
	}
	files, err := scanner.ListSupported(dir)
	if err != nil {
		return nil, err
	}

	result := &BatchLoadResult{Documents: []model.Document{}, TotalFiles: len(files)}
	for _, f := range files {
		doc := &model.Document{
			Filename:     unsafeFilenameChars.ReplaceAllString(f.Filename, "_"),
			OriginalName: f.Filename,
			Mimetype:     parser.MimeTypeFor(f.Filename),
			Size:         f.Size,
		}
		if err := s.repo.Create(doc); err != nil {
			s.logger.Error("record batch document failed", "file", f.Filename, "error", err)
			result.Processed.Failed++
			continue
		}
		ok, err := s.parseAndRecord(ctx, s.folderParser, doc, f.FullPath)
		if err != nil {
			s.logger.Error("record parse result failed", "file", f.Filename, "error", err)
			result.Processed.Failed++
			continue
		}
		if ok {
			result.Processed.Success++
		} else {
			result.Processed.Failed++
		}
		result.Documents = append(result.Documents, *doc)
	}
	result.Message = fmt.Sprintf("Loaded %d documents from sample folder", len(result.Documents))
	s.logger.Info("batch load finished",
		"dir", dir,
		"files", len(files),
		"success", result.Processed.Success,
		"failed", result.Processed.Failed,
	)
	return result, nil
}

func (s *DocumentService) List() ([]model.Document, error) {
	return s.repo.List()
}

// parseAndRecord parses path and writes the outcome onto doc. It reports
// whether parsing succeeded; the error is only for persistence failures.
func (s *DocumentService) parseAndRecord(ctx context.Context, p parser.Parser, doc *model.Document, path string) (bool, error) {
	var (
		content  string
		status   = model.ParseStatusSuccess
		parseErr *string
	)
	res, err := p.Parse(ctx, path, doc.Mimetype)
	if err != nil {
		msg := err.Error()
		parseErr = &msg
		status = model.ParseStatusFailed
		s.logger.Warn("document parse failed", "document_id", doc.ID, "file", doc.OriginalName, "error", msg)
	} else {
		content = res.Content
	}

	if err := s.repo.UpdateContent(doc.ID, &content, status, parseErr); err != nil {
		return false, err
	}
	doc.Content = &content
	doc.ParseStatus = status
	doc.ParseError = parseErr
	return status == model.ParseStatusSuccess, nil
}

func (s *DocumentService) storageName(original string) string {
	return fmt.Sprintf("%d-%s-%s",
		s.now().UnixMilli(),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		unsafeFilenameChars.ReplaceAllString(original, "_"),
	)
}

func normalizeMimeType(raw string) string {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mt
}

func requireDirectory(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return notFoundErrorf("Sample documents folder not found")
	}
	if err != nil {
		return fmt.Errorf("stat documents folder failed: %w", err)
	}
	return nil
}
