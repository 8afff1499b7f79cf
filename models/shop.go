package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Shop struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`
	Name    string    `gorm:"size:100;not null" json:"name"`
	Slug    string    `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Phone   string    `gorm:"size:20" json:"phone"`

	// One messaging instance per shop. The name is written once and never
	// changed; the key is the per-instance credential returned on creation.
	EvolutionInstanceName   *string `gorm:"column:evolution_instance_name;size:80" json:"evolutionInstanceName"`
	EvolutionInstanceAPIKey *string `gorm:"column:evolution_instance_api_key;size:255" json:"-"`

	Barbers  []Barber  `gorm:"foreignKey:ShopID" json:"-"`
	Services []Service `gorm:"foreignKey:ShopID" json:"-"`
	Clients  []Client  `gorm:"foreignKey:ShopID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Shop) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// InstanceName returns the provisioned instance name, or "" when none exists.
func (s *Shop) InstanceName() string {
	if s == nil || s.EvolutionInstanceName == nil {
		return ""
	}
	return *s.EvolutionInstanceName
}

func (s *Shop) InstanceAPIKey() string {
	if s == nil || s.EvolutionInstanceAPIKey == nil {
		return ""
	}
	return *s.EvolutionInstanceAPIKey
}
