package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pstracker/backend/internal/models"
)

// @Summary Get a position check
// @Tags checks
// @Produce json
// @Param id path int true "check id"
// @Success 200 {object} models.PositionCheck
// @Failure 404 {object} map[string]any
// @Router /api/checks/{id} [get]
func (h *Handler) GetCheck(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	check, err := h.Checks.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

type UpdateCheckRequest struct {
	Outcome   string `json:"outcome" validate:"required,oneof=FOUND NOT_FOUND"`
	CheckedBy string `json:"checked_by"`
	Notes     string `json:"notes"`
}

// @Summary Record the outcome of a position check
// @Description Marks the position FOUND or NOT_FOUND and rederives item and mission statuses
// @Tags checks
// @Accept json
// @Produce json
// @Param id path int true "check id"
// @Param request body UpdateCheckRequest true "check outcome"
// @Success 200 {object} models.Mission
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/checks/{id} [post]
func (h *Handler) UpdateCheck(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "outcome must be FOUND or NOT_FOUND", err.Error())
		return
	}

	mission, err := h.Checks.UpdateCheck(c.Request.Context(), id, models.CheckOutcome(req.Outcome), req.CheckedBy, req.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mission)
}
