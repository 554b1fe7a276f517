package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mockielts/mockielts-backend/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves result spreadsheets.
type ExportHandler struct {
	exportService *service.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// ExportTestResults godoc
// GET /api/v1/admin/tests/:id/results/export
// Downloads every section result of a test as an XLSX workbook.
func (h *ExportHandler) ExportTestResults(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	buf, name, err := h.exportService.ExportTestResults(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
