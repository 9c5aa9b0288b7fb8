package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// StatsProvider computes the dashboard summary
type StatsProvider interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// DashboardHandler serves the staff dashboard
type DashboardHandler struct {
	stats StatsProvider
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(stats StatsProvider) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

// GetStats
// @Summary  Dashboard figures
// @Tags     dashboard
// @Security BearerAuth
// @Success  200  {object}  models.DashboardStats
// @Router   /dashboard/stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
