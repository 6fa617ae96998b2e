package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads the text layer of a PDF. Scanned PDFs without a text layer
// are reported as failures.
func extractPDF(path string) (text string, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	text, err = ExtractPDFText(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("pdf contains no extractable text")
	}
	return text, nil
}

// ExtractPDFText extracts plain text from the PDF in r.
func ExtractPDFText(r io.ReaderAt, size int64) (string, error) {
	if size == 0 {
		return "", errors.New("empty pdf")
	}
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
