package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pstracker/backend/internal/models"
)

type CreateMissionRequest struct {
	Cesta     string `json:"cesta" validate:"required"`
	CreatedBy string `json:"created_by"`
}

// @Summary Create a search mission for a basket
// @Description Reconciles the basket against shipment data and creates a mission covering every missing item
// @Tags missions
// @Accept json
// @Produce json
// @Param request body CreateMissionRequest true "basket to reconcile"
// @Success 201 {object} models.Mission
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/missions [post]
func (h *Handler) CreateMission(c *gin.Context) {
	var req CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "cesta is required", err.Error())
		return
	}

	mission, err := h.Missions.Create(c.Request.Context(), req.Cesta, req.CreatedBy)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mission)
}

// @Summary List missions
// @Tags missions
// @Produce json
// @Param status query string false "filter by status"
// @Param limit query int false "max results, default 50"
// @Success 200 {array} models.Mission
// @Router /api/missions [get]
func (h *Handler) ListMissions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	missions, err := h.Missions.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if missions == nil {
		missions = []models.Mission{}
	}
	c.JSON(http.StatusOK, missions)
}

// @Summary Get a mission with its items and position checks
// @Tags missions
// @Produce json
// @Param id path int true "mission id"
// @Success 200 {object} models.Mission
// @Failure 404 {object} map[string]any
// @Router /api/missions/{id} [get]
func (h *Handler) GetMission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	mission, err := h.Missions.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mission)
}

// @Summary Get the ordered search route for a mission
// @Tags missions
// @Produce json
// @Param id path int true "mission id"
// @Success 200 {array} models.PositionCheck
// @Router /api/missions/{id}/route [get]
func (h *Handler) MissionRoute(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	route, err := h.Missions.Route(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// @Summary Get the next pending position on a mission's route
// @Tags missions
// @Produce json
// @Param id path int true "mission id"
// @Success 200 {object} models.PositionCheck
// @Router /api/missions/{id}/next-position [get]
func (h *Handler) NextPosition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	next, err := h.Missions.NextPosition(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if next == nil {
		c.JSON(http.StatusOK, gin.H{"next_position": nil, "message": "all positions checked"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_position": next})
}

// @Summary Get mission progress counters
// @Tags missions
// @Produce json
// @Param id path int true "mission id"
// @Success 200 {object} models.MissionSummary
// @Router /api/missions/{id}/summary [get]
func (h *Handler) MissionSummary(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	summary, err := h.Missions.Summary(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type UpdateMissionStatusRequest struct {
	Status string `json:"status" validate:"required"`
	By     string `json:"by"`
}

// @Summary Abandon a mission
// @Description The only status a client may set directly is ABANDONED; the rest are derived from check outcomes
// @Tags missions
// @Accept json
// @Produce json
// @Param id path int true "mission id"
// @Param request body UpdateMissionStatusRequest true "target status"
// @Success 200 {object} models.Mission
// @Failure 409 {object} map[string]any
// @Router /api/missions/{id}/status [put]
func (h *Handler) UpdateMissionStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateMissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}
	if models.MissionStatus(req.Status) != models.MissionAbandoned {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "only ABANDONED can be set directly", nil)
		return
	}

	mission, err := h.Checks.Abandon(c.Request.Context(), id, req.By)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mission)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
