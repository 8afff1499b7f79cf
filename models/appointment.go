package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var Statuses = []string{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	BarberID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"barberId"`
	Barber    Barber     `gorm:"foreignKey:BarberID" json:"barber"`
	ServiceID uuid.UUID  `gorm:"type:uuid;index;not null" json:"serviceId"`
	Service   Service    `gorm:"foreignKey:ServiceID" json:"service"`
	ClientID  *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`
	Client    *Client    `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	ClientName string `gorm:"size:100;not null" json:"clientName"`
	Phone      string `gorm:"size:20" json:"phone"`

	// Date and time of the appointment, stored in UTC.
	ScheduledAt time.Time `gorm:"index;not null" json:"scheduledAt"`
	Status      string    `gorm:"size:20;index;not null;default:'pending'" json:"status"`
	Price       float64   `gorm:"type:decimal(10,2);not null" json:"price"`

	ReminderSentAt *time.Time `json:"reminderSentAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	return
}

func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// CanTransition reports whether the edge from -> to exists in the status
// machine. Completed and cancelled accept nothing.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}
