package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mockielts/mockielts-backend/internal/middleware"
	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/service"
)

// DashboardHandler handles the candidate dashboard.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboardData godoc
// GET /api/v1/me/dashboard
// Returns the progress series, latest band per skill and the overall band.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	data, err := h.dashboardService.GetDashboardData(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}
