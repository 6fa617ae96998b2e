package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"claim-evaluator/internal/app"
	"claim-evaluator/internal/transport/http/response"
)

const uploadField = "files"

// multipartOverhead leaves room for part headers and form fields.
const multipartOverhead = 1 << 20

type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

// maxBody is the largest request that can still be valid.
func (l UploadLimits) maxBody() int64 {
	return l.MaxFileSize*int64(l.MaxFiles) + multipartOverhead
}

type DocumentHandler struct {
	documentService *app.DocumentService
	documentsDir    string
	limits          UploadLimits
}

func NewDocumentHandler(documentService *app.DocumentService, documentsDir string, limits UploadLimits) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, documentsDir: documentsDir, limits: limits}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	if c.Request.ContentLength > h.limits.maxBody() {
		h.rejectTooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.maxBody())
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.rejectTooLarge(c)
			return
		}
		response.Error(c, http.StatusBadRequest, "No files uploaded")
		return
	}

	headers := form.File[uploadField]
	if len(headers) > h.limits.MaxFiles {
		response.Error(c, http.StatusBadRequest, fmt.Sprintf("Too many files. Maximum is %d files per upload.", h.limits.MaxFiles))
		return
	}
	files := make([]app.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, app.UploadFile{
			Filename: fh.Filename,
			Mimetype: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	docs, err := h.documentService.Upload(c.Request.Context(), files)
	if err != nil {
		response.FromError(c, err, "Failed to upload documents")
		return
	}
	response.OK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) rejectTooLarge(c *gin.Context) {
	response.Error(c, http.StatusBadRequest, fmt.Sprintf("File too large. Maximum size is %dMB.", h.limits.MaxFileSize>>20))
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.List()
	if err != nil {
		response.FromError(c, err, "Failed to fetch documents")
		return
	}
	response.OK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) LoadSampleBatch(c *gin.Context) {
	result, err := h.documentService.LoadDirectory(c.Request.Context(), h.documentsDir)
	if err != nil {
		response.FromError(c, err, "Failed to load sample documents")
		return
	}
	response.OK(c, result)
}
