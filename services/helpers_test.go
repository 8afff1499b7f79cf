package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barberflow-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type sentMessage struct {
	Shop  uuid.UUID
	Phone string
	Text  string
}

type fakeMessenger struct {
	mu       sync.Mutex
	disabled bool
	err      error
	panics   bool
	sent     []sentMessage
}

func (f *fakeMessenger) IsEnabled(*models.Shop) bool { return !f.disabled }

func (f *fakeMessenger) SendText(_ context.Context, shop *models.Shop, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("provider exploded")
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{Shop: shop.ID, Phone: phone, Text: text})
	return nil
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

var errSendFailed = errors.New("send failed")

type fixture struct {
	shop    models.Shop
	barber  models.Barber
	service models.Service
	client  models.Client
}

func seed(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		shop: models.Shop{OwnerID: uuid.New(), Name: "Barbearia Centro", Slug: "centro", Phone: "11988887777"},
	}
	if err := db.Create(&f.shop).Error; err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	f.barber = models.Barber{ShopID: f.shop.ID, Name: "João", Active: true}
	if err := db.Create(&f.barber).Error; err != nil {
		t.Fatalf("seed barber: %v", err)
	}
	f.service = models.Service{ShopID: f.shop.ID, Name: "Corte", Price: 50, Duration: 30, IsActive: true}
	if err := db.Create(&f.service).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	f.client = models.Client{ShopID: f.shop.ID, Name: "Carlos", Phone: "11977776666"}
	if err := db.Create(&f.client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return f
}

func seedAppointment(t *testing.T, db *gorm.DB, f fixture, at time.Time, status string) models.Appointment {
	t.Helper()
	apt := models.Appointment{
		BarberID:    f.barber.ID,
		ServiceID:   f.service.ID,
		ClientID:    &f.client.ID,
		ClientName:  f.client.Name,
		Phone:       f.client.Phone,
		ScheduledAt: at.UTC(),
		Status:      status,
		Price:       f.service.Price,
	}
	if err := db.Omit("Barber", "Service", "Client").Create(&apt).Error; err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return apt
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
