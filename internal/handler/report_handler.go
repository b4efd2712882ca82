package handler

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/response"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/storage"
)

type reportFiles interface {
	Path(filename string) string
}

// ReportHandler serves generated report files behind signed, expiring links.
type ReportHandler struct {
	signer *storage.SignedURLSigner
	files  reportFiles
	logger *zap.Logger
}

// NewReportHandler constructs the report download handler.
func NewReportHandler(signer *storage.SignedURLSigner, files reportFiles, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{signer: signer, files: files, logger: logger}
}

// Download godoc
// @Summary Download a generated attendance report
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed report token"
// @Success 200 {file} binary
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Param("token")
	reportID, relPath, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report link is invalid or has expired"))
		return
	}

	fullPath := h.files.Path(relPath)
	if _, err := os.Stat(fullPath); err != nil {
		h.logger.Warn("report file missing", zap.String("report_id", reportID), zap.Error(err))
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report is no longer available"))
		return
	}
	c.FileAttachment(fullPath, reportID)
}
