package controller

import (
	"net/http"
	"strconv"

	"github.com/Itish41/ParseGuard/middleware"
	services "github.com/Itish41/ParseGuard/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardController struct {
	service *services.DashboardService
	log     *zap.Logger
}

func NewDashboardController(service *services.DashboardService, log *zap.Logger) *DashboardController {
	return &DashboardController{service: service, log: log.Named("dashboard_controller")}
}

func (c *DashboardController) GetStats(ctx *gin.Context) {
	stats, err := c.service.Stats(ctx.Request.Context(), middleware.Owner(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// GetActivity serves the recent activity feed. An out-of-range limit falls
// back to the default.
func (c *DashboardController) GetActivity(ctx *gin.Context) {
	limit := services.DefaultActivityLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(ctx, "Query parameter 'limit' must be an integer")
			return
		}
		limit = n
	}

	activity, err := c.service.RecentActivity(ctx.Request.Context(), middleware.Owner(ctx), limit)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"activity": activity,
		"total":    len(activity),
	})
}
