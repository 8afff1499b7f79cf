// controllers/service.go
package controllers

import (
	"errors"
	"net/http"

	"barberflow-backend/models"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"min=0"`
	Duration int     `json:"duration" binding:"min=0"` // in minutes
}

type UpdateServiceInput struct {
	Name     *string  `json:"name"`
	Price    *float64 `json:"price"`
	Duration *int     `json:"duration"`
	IsActive *bool    `json:"isActive"`
}

func (h *Handler) CreateService(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	service := models.Service{
		ShopID:   shopID,
		Name:     input.Name,
		Price:    input.Price,
		Duration: input.Duration,
		IsActive: true,
	}
	if err := h.DB.Create(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create service")
		return
	}

	c.JSON(http.StatusCreated, service)
}

func (h *Handler) GetServices(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var services []models.Service
	if err := h.DB.Where("shop_id = ?", shopID).Order("name").Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	c.JSON(http.StatusOK, services)
}

func (h *Handler) UpdateService(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}
	serviceID, ok := paramUUID(c, "id", "service")
	if !ok {
		return
	}

	var input UpdateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var service models.Service
	if err := h.DB.Where("shop_id = ? AND id = ?", shopID, serviceID).
		First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		service.Name = *input.Name
	}
	if input.Price != nil {
		service.Price = *input.Price
	}
	if input.Duration != nil {
		service.Duration = *input.Duration
	}
	if input.IsActive != nil {
		service.IsActive = *input.IsActive
	}

	if err := h.DB.Save(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update service")
		return
	}

	c.JSON(http.StatusOK, service)
}
