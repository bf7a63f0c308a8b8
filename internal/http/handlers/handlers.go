package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/errs"
	"github.com/pstracker/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Missions  *service.MissionService
	Checks    *service.CheckService
	Imports   *service.ImportService
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// writeServiceError maps the stable error codes from the service layer
// onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	code := errs.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeValidation:
		status = http.StatusBadRequest
	case errs.CodeConflict:
		status = http.StatusConflict
	case errs.CodeExternal:
		status = http.StatusBadGateway
	}
	writeError(c, status, code, errs.MessageOf(err), nil)
}
