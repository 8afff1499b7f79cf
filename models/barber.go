package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Barber struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ShopID uuid.UUID `gorm:"type:uuid;index;not null" json:"shopId"`
	Shop   Shop      `gorm:"foreignKey:ShopID" json:"-"`
	Name   string    `gorm:"size:100;not null" json:"name"`
	Phone  string    `gorm:"size:20" json:"phone"`
	Active bool      `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Barber) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
