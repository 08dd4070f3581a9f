package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/services"
	"go.uber.org/zap"
)

// StatisticsHandler serves the dashboard
type StatisticsHandler struct {
	statisticsService *services.StatisticsService
	logger            *zap.Logger
}

// NewStatisticsHandler creates a new StatisticsHandler
func NewStatisticsHandler(statisticsService *services.StatisticsService, logger *zap.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		statisticsService: statisticsService,
		logger:            logger,
	}
}

// Dashboard returns project and task counts, overdue tasks and the busiest assignees
func (h *StatisticsHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.statisticsService.Dashboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
