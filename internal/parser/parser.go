// Package parser extracts plain text from claim documents.
//
// Supported formats:
//   - .pdf        text layer via github.com/ledongthuc/pdf
//   - .docx       word/document.xml paragraphs
//   - .xlsx       every sheet, cells tab-separated, one row per line
//   - .txt, .tex  passthrough with UTF-8 repair
//   - .doc, .xls  legacy binary formats, printable text runs only
//
// A failure is always reported as *ParseError so callers can record it on the
// document and carry on with the rest of a batch.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatDoc  Format = "doc"
	FormatXlsx Format = "xlsx"
	FormatXls  Format = "xls"
	FormatText Format = "text"
)

const (
	MimePDF  = "application/pdf"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDoc  = "application/msword"
	MimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXls  = "application/vnd.ms-excel"
	MimeText = "text/plain"
	MimeAny  = "application/octet-stream"
)

// SupportedMimeTypes is the upload allow-list.
var SupportedMimeTypes = map[string]bool{
	MimePDF:  true,
	MimeDocx: true,
	MimeDoc:  true,
	MimeXlsx: true,
	MimeXls:  true,
	MimeText: true,
}

var extensionMimeTypes = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDocx,
	".doc":  MimeDoc,
	".xlsx": MimeXlsx,
	".xls":  MimeXls,
	".txt":  MimeText,
	".tex":  MimeText,
}

// MimeTypeFor maps a file extension to the MIME type recorded on documents.
func MimeTypeFor(filename string) string {
	if mt, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return MimeAny
}

// Result is the text extracted from one file.
type Result struct {
	Content string `json:"content"`
	Format  Format `json:"format"`
}

// Parser extracts text from the file at path. mimeType may be
// application/octet-stream, in which case the extension decides.
type Parser interface {
	Parse(ctx context.Context, path, mimeType string) (*Result, error)
}

// ParseError is a per-file, recoverable extraction failure.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(path string, err error) *ParseError {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return &ParseError{Path: path, Reason: err.Error(), Err: err}
}

type Config struct {
	// MaxFileSize rejects larger files before reading them. Zero means 100 MB.
	MaxFileSize int64
	Logger      *slog.Logger
}

// Pipeline is the format-dispatching Parser.
type Pipeline struct {
	maxFileSize int64
	logger      *slog.Logger
}

func New(cfg Config) *Pipeline {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 100 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{maxFileSize: cfg.MaxFileSize, logger: cfg.Logger}
}

// Detect picks the format from the MIME type, falling back to the extension
// for generic types.
func Detect(path, mimeType string) (Format, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case MimePDF:
		return FormatPDF, nil
	case MimeDocx:
		return FormatDocx, nil
	case MimeDoc:
		return FormatDoc, nil
	case MimeXlsx:
		return FormatXlsx, nil
	case MimeXls:
		return FormatXls, nil
	case MimeText:
		return FormatText, nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDocx, nil
	case ".doc":
		return FormatDoc, nil
	case ".xlsx":
		return FormatXlsx, nil
	case ".xls":
		return FormatXls, nil
	case ".txt", ".tex", ".md":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported document format: %q", ext)
	}
}

func (p *Pipeline) Parse(ctx context.Context, path, mimeType string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, newParseError(path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, newParseError(path, fmt.Errorf("stat %s failed: %w", filepath.Base(path), err))
	}
	if info.Size() > p.maxFileSize {
		return nil, &ParseError{
			Path:   path,
			Reason: fmt.Sprintf("file too large: %d bytes (max %d)", info.Size(), p.maxFileSize),
		}
	}

	format, err := Detect(path, mimeType)
	if err != nil {
		return nil, newParseError(path, err)
	}

	p.logger.Debug("parsing document", "path", path, "format", format)

	var content string
	switch format {
	case FormatPDF:
		content, err = extractPDF(path)
	case FormatDocx:
		content, err = extractDocx(path)
	case FormatXlsx:
		content, err = extractXlsx(path)
	case FormatDoc, FormatXls:
		content, err = extractLegacy(path)
	case FormatText:
		content, err = extractText(path)
	}
	if err != nil {
		return nil, newParseError(path, fmt.Errorf("parse %s (%s) failed: %w", filepath.Base(path), format, err))
	}

	return &Result{Content: content, Format: format}, nil
}
