package controllers

import (
	"errors"
	"net/http"

	"barberflow-backend/models"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errInsufficientStock = errors.New("insufficient stock")

type CreateProductInput struct {
	Name     string   `json:"name" binding:"required,max=100"`
	Price    float64  `json:"price" binding:"min=0"`
	Cost     *float64 `json:"cost" binding:"omitempty,min=0"`
	Stock    int      `json:"stock" binding:"min=0"`
	MinStock *int     `json:"minStock" binding:"omitempty,min=0"`
	Image    string   `json:"image" binding:"max=255"`
	Category string   `json:"category" binding:"max=50"`
	Active   *bool    `json:"active"`
}

type UpdateProductInput struct {
	Name     *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Price    *float64 `json:"price" binding:"omitempty,min=0"`
	Cost     *float64 `json:"cost" binding:"omitempty,min=0"`
	MinStock *int     `json:"minStock" binding:"omitempty,min=0"`
	Image    *string  `json:"image" binding:"omitempty,max=255"`
	Category *string  `json:"category" binding:"omitempty,max=50"`
	Active   *bool    `json:"active"`
}

// StockInput adjusts a product's stock. Operation is "add" (default),
// "subtract" or "set".
type StockInput struct {
	Quantity  *int   `json:"quantity" binding:"required,min=0"`
	Operation string `json:"operation"`
}

// GetProducts lists the shop's products. ?low_stock=true returns active
// products at or below their minimum, emptiest first; ?category= filters
// by category.
func (h *Handler) GetProducts(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	query := h.DB.WithContext(c.Request.Context()).Where("shop_id = ?", shopID)
	switch {
	case c.Query("low_stock") == "true":
		query = query.Where("active = ? AND min_stock IS NOT NULL AND stock <= min_stock", true).Order("stock ASC")
	case c.Query("category") != "":
		query = query.Where("category = ?", c.Query("category")).Order("name")
	default:
		query = query.Order("name")
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	product := models.Product{
		ShopID:   shopID,
		Name:     input.Name,
		Price:    input.Price,
		Cost:     input.Cost,
		Stock:    input.Stock,
		MinStock: input.MinStock,
		Image:    input.Image,
		Category: input.Category,
		Active:   true,
	}
	if input.Active != nil {
		product.Active = *input.Active
	}
	// Active is a defaulted column; a false value is written by Select.
	if err := h.DB.WithContext(c.Request.Context()).Select("*").Create(&product).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) GetProduct(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Cost != nil {
		product.Cost = input.Cost
	}
	if input.MinStock != nil {
		product.MinStock = input.MinStock
	}
	if input.Image != nil {
		product.Image = *input.Image
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Active != nil {
		product.Active = *input.Active
	}

	// Stock only moves through UpdateStock.
	err := h.DB.WithContext(c.Request.Context()).Model(product).Updates(map[string]any{
		"name":      product.Name,
		"price":     product.Price,
		"cost":      product.Cost,
		"min_stock": product.MinStock,
		"image":     product.Image,
		"category":  product.Category,
		"active":    product.Active,
	}).Error
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}
	productID, ok := paramUUID(c, "id", "product")
	if !ok {
		return
	}

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("shop_id = ? AND id = ?", shopID, productID).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("product_id = ?", productID).Delete(&models.ProductMovement{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Product not found")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStock applies a stock change and records the movement in one
// transaction. Subtracting below zero is refused.
func (h *Handler) UpdateStock(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	var input StockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Quantity is required")
		return
	}
	qty := *input.Quantity

	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		row := tx.Model(&models.Product{}).Where("id = ?", product.ID)
		var movement string
		switch input.Operation {
		case "", "add":
			row = row.Update("stock", gorm.Expr("stock + ?", qty))
			movement = models.MovementPurchase
		case "subtract":
			row = row.Where("stock >= ?", qty).Update("stock", gorm.Expr("stock - ?", qty))
			movement = models.MovementSale
		default:
			row = row.Update("stock", qty)
		}
		if row.Error != nil {
			return row.Error
		}
		if row.RowsAffected == 0 {
			return errInsufficientStock
		}

		if movement != "" && qty > 0 {
			m := models.ProductMovement{ShopID: product.ShopID, ProductID: product.ID, Quantity: qty, Operation: movement}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		return tx.First(product, "id = ?", product.ID).Error
	})
	if err != nil {
		if errors.Is(err, errInsufficientStock) {
			utils.RespondWithError(c, http.StatusBadRequest, "Insufficient stock")
			return
		}
		h.Log.Error().Err(err).Str("product", product.ID.String()).Msg("update stock")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update stock")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) loadProduct(c *gin.Context) (*models.Product, bool) {
	shopID, ok := currentShopID(c)
	if !ok {
		return nil, false
	}
	productID, ok := paramUUID(c, "id", "product")
	if !ok {
		return nil, false
	}

	var product models.Product
	err := h.DB.WithContext(c.Request.Context()).Where("shop_id = ? AND id = ?", shopID, productID).First(&product).Error
	if err != nil {
		respondLookupError(c, err, "Product not found")
		return nil, false
	}
	return &product, true
}
