package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"barberflow-backend/models"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetClients lists the shop's clients, most frequent first. ?search=
// matches name or phone.
func (h *Handler) GetClients(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	query := h.DB.Where("shop_id = ?", shopID)
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR phone LIKE ?", pattern, "%"+utils.DigitsOnly(search)+"%")
	}

	var clients []models.Client
	if err := query.Order("visits DESC, name ASC").Find(&clients).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve clients")
		return
	}

	c.JSON(http.StatusOK, clients)
}

// GetClient returns one client with its appointment history.
func (h *Handler) GetClient(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}
	clientID, ok := paramUUID(c, "id", "client")
	if !ok {
		return
	}

	var client models.Client
	if err := h.DB.Where("shop_id = ? AND id = ?", shopID, clientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	var history []models.Appointment
	err := h.DB.Preload("Barber").Preload("Service").
		Where("client_id = ?", client.ID).
		Order("scheduled_at DESC").
		Find(&history).Error
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client":       client,
		"appointments": history,
	})
}

// GetTopClients ranks the shop's clients by total spent. ?limit= defaults
// to 10 and is capped at 100.
func (h *Handler) GetTopClients(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, 100)
	}

	var clients []models.Client
	err := h.DB.Where("shop_id = ?", shopID).
		Order("total_spent DESC, visits DESC").
		Limit(limit).
		Find(&clients).Error
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve clients")
		return
	}
	c.JSON(http.StatusOK, clients)
}
