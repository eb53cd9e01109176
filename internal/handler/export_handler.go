package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhobighat/api/internal/service"
	"github.com/dhobighat/api/pkg/response"
)

// ExportHandler serves cleaning schedule exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service *service.ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export the cleaning schedule
// @Tags ClothingItems
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /clothing-items/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	report, err := h.service.BuildScheduleReport(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
