package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"claim-evaluator/internal/app"
	"claim-evaluator/internal/transport/http/response"
)

type FileHandler struct {
	fileService *app.FileService
}

func NewFileHandler(fileService *app.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (h *FileHandler) Latest(c *gin.Context) {
	listing, err := h.fileService.Latest()
	if err != nil {
		response.FromError(c, err, "Failed to scan documents folder")
		return
	}
	response.OK(c, listing)
}

// PCScan reads directories and fileTypes as comma-separated lists. An
// invalid limit falls back to the configured default.
func (h *FileHandler) PCScan(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}
	result := h.fileService.Scan(app.ScanRequest{
		Directories: splitList(c.Query("directories")),
		Limit:       limit,
		FileTypes:   splitList(c.Query("fileTypes")),
	})
	response.OK(c, result)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
