package controllers

import (
	"net/http"

	"barberflow-backend/models"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
)

type CreateBarberInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

func (h *Handler) CreateBarber(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var input CreateBarberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	barber := models.Barber{
		ShopID: shopID,
		Name:   input.Name,
		Phone:  utils.DigitsOnly(input.Phone),
		Active: true,
	}
	if err := h.DB.Create(&barber).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create barber")
		return
	}

	c.JSON(http.StatusCreated, barber)
}

func (h *Handler) GetBarbers(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var barbers []models.Barber
	if err := h.DB.Where("shop_id = ?", shopID).Order("name").Find(&barbers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve barbers")
		return
	}

	c.JSON(http.StatusOK, barbers)
}
