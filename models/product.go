package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock movement operations.
const (
	MovementPurchase = "purchase"
	MovementSale     = "sale"
)

// Product is retail stock the shop sells at the counter. A nil MinStock
// means the product never reports as low.
type Product struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ShopID   uuid.UUID `gorm:"type:uuid;index;not null" json:"shopId"`
	Name     string    `gorm:"size:100;not null" json:"name"`
	Price    float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Cost     *float64  `gorm:"type:decimal(10,2)" json:"cost"`
	Stock    int       `gorm:"not null;default:0" json:"stock"`
	MinStock *int      `json:"minStock"`
	Image    string    `gorm:"size:255" json:"image"`
	Category string    `gorm:"size:50;index" json:"category"`
	Active   bool      `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// LowStock reports whether an active product is at or below its minimum.
func (p *Product) LowStock() bool {
	return p.Active && p.MinStock != nil && p.Stock <= *p.MinStock
}

// ProductMovement records one stock change. Quantity is always positive;
// Operation gives the direction.
type ProductMovement struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ShopID    uuid.UUID `gorm:"type:uuid;index;not null" json:"shopId"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"productId"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Operation string    `gorm:"size:20;not null" json:"operation"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *ProductMovement) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
