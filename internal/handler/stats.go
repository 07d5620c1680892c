package handler

import (
	"net/http"
	"strconv"

	"confcheckin/internal/service"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct{ svc service.StatsService }

func NewStatsHandler(svc service.StatsService) *StatsHandler { return &StatsHandler{svc: svc} }

// Stats godoc
// @Summary Live check-in statistics
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StatsResponse
// @Router /v1/stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	resp, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecentCheckIns godoc
// @Summary Most recent check-ins, newest first
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows (default 10, max 100)"
// @Success 200 {array} dto.RecentCheckInResponse
// @Router /v1/recent-check-ins [get]
func (h *StatsHandler) RecentCheckIns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit")) // unparsable → 0 → default
	resp, err := h.svc.RecentCheckIns(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
