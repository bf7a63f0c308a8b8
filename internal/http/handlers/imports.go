package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pstracker/backend/internal/importer"
	"github.com/pstracker/backend/internal/service"
)

type TriggerImportRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Cesta     string `json:"cesta"`
}

// @Summary Trigger an import source
// @Description Runs one of the feed imports on demand: DUMPTRACK, MONITOR, PRELIEVO or SPEDITO
// @Tags imports
// @Accept json
// @Produce json
// @Param source path string true "import source"
// @Param request body TriggerImportRequest false "optional date range or basket"
// @Success 200 {array} importer.Result
// @Failure 400 {object} map[string]any
// @Router /api/imports/{source}/trigger [post]
func (h *Handler) TriggerImport(c *gin.Context) {
	source, err := importer.ParseSource(c.Param("source"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	var req TriggerImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
			return
		}
	}
	params := service.TriggerParams{Cesta: req.Cesta}
	if req.StartDate != "" || req.EndDate != "" {
		start, err1 := time.Parse("2006-01-02", req.StartDate)
		end, err2 := time.Parse("2006-01-02", req.EndDate)
		if err1 != nil || err2 != nil || end.Before(start) {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "start_date and end_date must be YYYY-MM-DD with start <= end", nil)
			return
		}
		params.Start, params.End = start, end
	}

	results, err := h.Imports.Trigger(c.Request.Context(), source, params)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if results == nil {
		results = []*importer.Result{}
	}
	c.JSON(http.StatusOK, results)
}

// @Summary Import history totals and the latest success per source
// @Tags imports
// @Produce json
// @Success 200 {object} db.ImportStatus
// @Router /api/imports/status [get]
func (h *Handler) ImportStatus(c *gin.Context) {
	status, err := h.Imports.Status(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
