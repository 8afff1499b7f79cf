package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"barberflow-backend/models"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	ShopName  string `json:"shopName" binding:"required"`
	ShopPhone string `json:"shopPhone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates the owner account together with its shop.
func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	}

	var existing models.User
	result := h.DB.Where("email = ?", strings.ToLower(input.Email)).First(&existing)
	if result.Error == nil {
		utils.RespondWithError(c, http.StatusConflict, "Email already registered")
		return
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	user := models.User{
		Email:    strings.ToLower(input.Email),
		Phone:    input.Phone,
		Name:     input.Name,
		Password: input.Password, // Will be hashed in BeforeCreate hook
		IsActive: true,
	}
	shop := models.Shop{
		Name:  input.ShopName,
		Phone: input.ShopPhone,
	}
	if shop.Phone == "" {
		shop.Phone = input.Phone
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		slug, err := uniqueSlug(tx, input.ShopName)
		if err != nil {
			return err
		}
		shop.OwnerID = user.ID
		shop.Slug = slug
		return tx.Create(&shop).Error
	})
	if err != nil {
		h.Log.Error().Err(err).Msg("register failed")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	token, err := utils.GenerateToken(user.ID.String(), shop.ID.String())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	setTokenCookie(c, token)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"shop": shop,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	result := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}
	if !user.IsActive || !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	var shop models.Shop
	if err := h.DB.Where("owner_id = ?", user.ID).First(&shop).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "No shop for this account")
		return
	}

	token, err := utils.GenerateToken(user.ID.String(), shop.ID.String())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	now := time.Now()
	h.DB.Model(&user).Update("last_login", &now)
	setTokenCookie(c, token)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"shop": shop,
	})
}

func (h *Handler) Me(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusInternalServerError, "User ID not found in context")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}
	shop, ok := h.currentShop(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
		"shop": shop,
	})
}

func setTokenCookie(c *gin.Context, token string) {
	maxAge := utils.TokenExpiryHours() * 3600
	c.SetCookie("token", token, maxAge, "/", "", true, true)
}

// uniqueSlug appends -2, -3, ... until the slug is free.
func uniqueSlug(tx *gorm.DB, name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "barbearia"
	}
	slug := base
	for i := 2; ; i++ {
		var n int64
		if err := tx.Model(&models.Shop{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
