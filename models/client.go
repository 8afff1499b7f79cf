package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client counters start at zero and are only ever incremented by an
// appointment completing.
type Client struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ShopID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_shop_phone,priority:1" json:"shopId"`

	Name       string  `gorm:"size:100;not null" json:"name"`
	Phone      string  `gorm:"size:20;uniqueIndex:idx_shop_phone,priority:2" json:"phone"`
	Email      string  `json:"email"`
	Visits     int     `gorm:"default:0" json:"visits"`
	TotalSpent float64 `gorm:"type:decimal(10,2);default:0.0" json:"totalSpent"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
