package controllers

import (
	"errors"
	"net/http"

	"barberflow-backend/models"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetPublicShop serves the booking page data for a shop slug.
func (h *Handler) GetPublicShop(c *gin.Context) {
	shop, ok := h.shopBySlug(c)
	if !ok {
		return
	}

	var barbers []models.Barber
	var services []models.Service
	if err := h.DB.Where("shop_id = ? AND active = ?", shop.ID, true).Order("name").Find(&barbers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if err := h.DB.Where("shop_id = ? AND is_active = ?", shop.ID, true).Order("name").Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shop": gin.H{
			"id":    shop.ID,
			"name":  shop.Name,
			"slug":  shop.Slug,
			"phone": shop.Phone,
		},
		"barbers":  barbers,
		"services": services,
	})
}

// CreatePublicAppointment books on behalf of a client. Public bookings
// always start pending.
func (h *Handler) CreatePublicAppointment(c *gin.Context) {
	shop, ok := h.shopBySlug(c)
	if !ok {
		return
	}

	var input AppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Phone == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Phone is required")
		return
	}
	input.Status = models.StatusPending
	input.Price = nil
	input.ClientID = nil

	apt, ok := h.bookAppointment(c, shop.ID, input)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          apt.ID,
		"status":      apt.Status,
		"scheduledAt": apt.ScheduledAt,
		"barber":      apt.Barber.Name,
		"service":     apt.Service.Name,
	})
}

func (h *Handler) shopBySlug(c *gin.Context) (*models.Shop, bool) {
	var shop models.Shop
	if err := h.DB.Where("slug = ?", c.Param("slug")).First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Shop not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &shop, true
}
