package controllers

import (
	"net/http"
	"time"

	"barberflow-backend/models"
	"barberflow-backend/services"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
)

type DashboardOverview struct {
	Counts       map[string]int64 `json:"counts"`
	TodayTotal   int              `json:"todayTotal"`
	TodayRevenue float64          `json:"todayRevenue"`
}

func (h *Handler) GetDashboardOverview(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// Listing today first settles auto-completion before counting.
	start := utils.BeginningOfDay(time.Now().In(h.Location))
	today, err := h.Appointments.List(ctx, shopID, services.ListFilter{From: start, To: start.AddDate(0, 0, 1)})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	counts, err := h.Appointments.CountByStatus(ctx, shopID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count appointments")
		return
	}

	overview := DashboardOverview{Counts: counts, TodayTotal: len(today)}
	for _, apt := range today {
		if apt.Status == models.StatusCompleted {
			overview.TodayRevenue += apt.Price
		}
	}

	c.JSON(http.StatusOK, overview)
}
