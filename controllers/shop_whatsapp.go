package controllers

import (
	"errors"
	"net/http"

	"barberflow-backend/services/messaging"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
)

// WhatsAppStatus reports the live state of the shop's instance.
func (h *Handler) WhatsAppStatus(c *gin.Context) {
	shop, ok := h.currentShop(c)
	if !ok {
		return
	}

	status := h.Channels.ConnectionState(c.Request.Context(), shop)
	c.JSON(http.StatusOK, gin.H{
		"configured":   h.Channels.IsConfigured(),
		"instanceName": shop.InstanceName(),
		"state":        status.State,
		"owner":        status.Owner,
		"profileName":  status.ProfileName,
		"error":        status.Error,
	})
}

func (h *Handler) WhatsAppCreate(c *gin.Context) {
	shop, ok := h.currentShop(c)
	if !ok {
		return
	}

	result, err := h.Channels.CreateInstance(c.Request.Context(), shop)
	if err != nil {
		var perr *messaging.ProtocolError
		switch {
		case errors.Is(err, messaging.ErrConflict):
			utils.RespondWithError(c, http.StatusConflict, "WhatsApp instance already exists for this shop")
		case errors.Is(err, messaging.ErrNotConfigured):
			utils.RespondWithError(c, http.StatusServiceUnavailable, "WhatsApp provider is not configured")
		case errors.As(err, &perr):
			utils.RespondWithError(c, http.StatusBadRequest, perr.Message)
		default:
			h.Log.Error().Err(err).Str("shop", shop.ID.String()).Msg("create instance failed")
			utils.RespondWithError(c, http.StatusBadGateway, "WhatsApp provider unreachable")
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) WhatsAppQRCode(c *gin.Context) {
	shop, ok := h.currentShop(c)
	if !ok {
		return
	}

	code, err := h.Channels.FetchQRCode(c.Request.Context(), shop)
	if err != nil {
		var perr *messaging.ProtocolError
		switch {
		case errors.Is(err, messaging.ErrNotConfigured):
			utils.RespondWithError(c, http.StatusBadRequest, "WhatsApp instance not created yet")
		case errors.As(err, &perr):
			utils.RespondWithError(c, http.StatusBadRequest, perr.Message)
		default:
			utils.RespondWithError(c, http.StatusBadGateway, "WhatsApp provider unreachable")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"qrcode": code})
}
