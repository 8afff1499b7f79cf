package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ShopID   uuid.UUID `gorm:"type:uuid;index;not null" json:"shopId"`
	Name     string    `gorm:"not null" json:"name"`
	Price    float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Duration int       `json:"duration"` // in minutes
	IsActive bool      `gorm:"default:true" json:"isActive"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
