package controllers

import (
	"net/http"

	"barberflow-backend/models"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
)

type UpdateShopInput struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=100"`
	Slug  *string `json:"slug"`
	Phone *string `json:"phone"`
}

func (h *Handler) GetShop(c *gin.Context) {
	shop, ok := h.currentShop(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, shop)
}

// UpdateShop edits the shop name, phone and public slug. A new slug is
// normalized and must not belong to another shop.
func (h *Handler) UpdateShop(c *gin.Context) {
	shop, ok := h.currentShop(c)
	if !ok {
		return
	}

	var input UpdateShopInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	if input.Slug != nil {
		slug := utils.Slugify(*input.Slug)
		if slug == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid slug")
			return
		}
		if slug != shop.Slug {
			var n int64
			if err := h.DB.WithContext(ctx).Model(&models.Shop{}).Where("slug = ? AND id <> ?", slug, shop.ID).Count(&n).Error; err != nil {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
				return
			}
			if n > 0 {
				utils.RespondWithError(c, http.StatusConflict, "Slug already in use")
				return
			}
			shop.Slug = slug
		}
	}
	if input.Name != nil {
		shop.Name = *input.Name
	}
	if input.Phone != nil {
		if *input.Phone != "" && !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
			return
		}
		shop.Phone = *input.Phone
	}

	err := h.DB.WithContext(ctx).Model(shop).Updates(map[string]any{
		"name":  shop.Name,
		"slug":  shop.Slug,
		"phone": shop.Phone,
	}).Error
	if err != nil {
		// The unique index catches a slug taken between the check and the write.
		h.Log.Error().Err(err).Msg("update shop")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update shop")
		return
	}
	c.JSON(http.StatusOK, shop)
}
