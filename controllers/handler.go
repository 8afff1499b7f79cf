package controllers

import (
	"errors"
	"net/http"
	"time"

	"barberflow-backend/models"
	"barberflow-backend/services"
	"barberflow-backend/services/messaging"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Handler carries the collaborators every route needs.
type Handler struct {
	DB           *gorm.DB
	Location     *time.Location
	Appointments *services.AppointmentService
	Channels     *messaging.ChannelManager
	Log          zerolog.Logger
}

func NewHandler(db *gorm.DB, loc *time.Location, appointments *services.AppointmentService, channels *messaging.ChannelManager, logger zerolog.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		DB:           db,
		Location:     loc,
		Appointments: appointments,
		Channels:     channels,
		Log:          logger.With().Str("component", "http").Logger(),
	}
}

// currentShopID reads the shopId claim set by AuthMiddleware.
func currentShopID(c *gin.Context) (uuid.UUID, bool) {
	shopID, exists := c.Get("shopId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Shop ID not found in context")
		return uuid.Nil, false
	}
	raw, _ := shopID.(string)
	shopUUID, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid shop ID format")
		return uuid.Nil, false
	}
	return shopUUID, true
}

func (h *Handler) currentShop(c *gin.Context) (*models.Shop, bool) {
	shopID, ok := currentShopID(c)
	if !ok {
		return nil, false
	}
	var shop models.Shop
	if err := h.DB.WithContext(c.Request.Context()).First(&shop, "id = ?", shopID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Shop not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &shop, true
}

func paramUUID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
