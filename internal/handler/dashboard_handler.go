package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swiftdrive/driveschool-api/internal/service"
	"github.com/swiftdrive/driveschool-api/pkg/response"
)

// DashboardHandler serves the headline stats and the activity feed.
type DashboardHandler struct {
	stats    *service.StatsService
	activity *service.ActivityService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(stats *service.StatsService, activity *service.ActivityService) *DashboardHandler {
	return &DashboardHandler{stats: stats, activity: activity}
}

// Stats godoc
// @Summary Dashboard headline counts
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Activities godoc
// @Summary Recent activity feed
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /activities/recent [get]
func (h *DashboardHandler) Activities(c *gin.Context) {
	entries, err := h.activity.Recent(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
