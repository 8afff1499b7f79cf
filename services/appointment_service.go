// services/appointment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barberflow-backend/metrics"
	"barberflow-backend/models"
	"barberflow-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidStatus     = errors.New("invalid appointment status")
	ErrInvalidTransition = errors.New("appointment status transition not allowed")
	ErrNotFound          = errors.New("appointment not found")
)

// AppointmentService owns the appointment status machine and the client
// statistics that hang off completion.
type AppointmentService struct {
	db       *gorm.DB
	notifier *NotificationService
	metrics  *metrics.Metrics
	now      func() time.Time
	log      zerolog.Logger
}

func NewAppointmentService(db *gorm.DB, notifier *NotificationService, m *metrics.Metrics, logger zerolog.Logger) *AppointmentService {
	return &AppointmentService{
		db:       db,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
		log:      logger.With().Str("component", "appointments").Logger(),
	}
}

type ListFilter struct {
	From     time.Time
	To       time.Time
	BarberID *uuid.UUID
	Status   string
}

func (s *AppointmentService) forShop(ctx context.Context, shopID uuid.UUID) *gorm.DB {
	barbers := s.db.Model(&models.Barber{}).Select("id").Where("shop_id = ?", shopID)
	return s.db.WithContext(ctx).
		Preload("Barber.Shop").
		Preload("Service").
		Preload("Client").
		Where("barber_id IN (?)", barbers)
}

// List returns the shop's appointments and completes every confirmed one
// whose time has passed.
func (s *AppointmentService) List(ctx context.Context, shopID uuid.UUID, f ListFilter) ([]models.Appointment, error) {
	q := s.forShop(ctx, shopID)
	if !f.From.IsZero() {
		q = q.Where("scheduled_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("scheduled_at < ?", f.To.UTC())
	}
	if f.BarberID != nil {
		q = q.Where("barber_id = ?", *f.BarberID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var apts []models.Appointment
	if err := q.Order("scheduled_at ASC").Find(&apts).Error; err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if _, err := s.AutoComplete(ctx, apts); err != nil {
		return nil, err
	}
	return apts, nil
}

func (s *AppointmentService) Get(ctx context.Context, shopID, id uuid.UUID) (*models.Appointment, error) {
	var apt models.Appointment
	if err := s.forShop(ctx, shopID).Where("id = ?", id).First(&apt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	apts := []models.Appointment{apt}
	if _, err := s.AutoComplete(ctx, apts); err != nil {
		return nil, err
	}
	return &apts[0], nil
}

// AutoComplete moves confirmed appointments at or before now to completed.
// All transitions of one call share a transaction, and nothing is written
// when none is due.
func (s *AppointmentService) AutoComplete(ctx context.Context, apts []models.Appointment) (int, error) {
	now := s.now()
	var due []int
	for i := range apts {
		if apts[i].Status == models.StatusConfirmed && !apts[i].ScheduledAt.After(now) {
			due = append(due, i)
		}
	}
	if len(due) == 0 {
		return 0, nil
	}

	var done []int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, i := range due {
			ok, err := completeTx(tx, &apts[i])
			if err != nil {
				return err
			}
			if ok {
				done = append(done, i)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("auto-complete appointments: %w", err)
	}

	for _, i := range done {
		markCompleted(&apts[i])
	}
	s.metrics.AutoCompleted(len(done))
	if len(done) > 0 {
		s.log.Info().Int("count", len(done)).Msg("appointments auto-completed")
	}
	return len(done), nil
}

// completeTx applies confirmed -> completed and the client counters. The
// status guard makes the counters apply at most once per appointment.
func completeTx(tx *gorm.DB, apt *models.Appointment) (bool, error) {
	res := tx.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", apt.ID, models.StatusConfirmed).
		Update("status", models.StatusCompleted)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if apt.ClientID != nil {
		err := tx.Model(&models.Client{}).
			Where("id = ?", *apt.ClientID).
			Updates(map[string]any{
				"visits":      gorm.Expr("visits + ?", 1),
				"total_spent": gorm.Expr("total_spent + ?", apt.Price),
			}).Error
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

// markCompleted mirrors a committed completion on the in-memory copy.
func markCompleted(apt *models.Appointment) {
	apt.Status = models.StatusCompleted
	if apt.Client != nil {
		apt.Client.Visits++
		apt.Client.TotalSpent += apt.Price
	}
}

// Create stores a new appointment and tells the shop about it. Only
// pending and confirmed are valid initial states.
func (s *AppointmentService) Create(ctx context.Context, apt *models.Appointment) error {
	if apt.Status == "" {
		apt.Status = models.StatusPending
	}
	if apt.Status != models.StatusPending && apt.Status != models.StatusConfirmed {
		return ErrInvalidStatus
	}
	apt.ScheduledAt = apt.ScheduledAt.UTC()

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(apt).Error; err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	s.notifier.Send(ctx, KindNewAppointment, apt)
	return nil
}

// Transition validates the requested status and applies it. Asking for the
// current status is a no-op.
func (s *AppointmentService) Transition(ctx context.Context, apt *models.Appointment, to string) error {
	if !models.IsValidStatus(to) {
		return ErrInvalidStatus
	}
	if apt.Status == to {
		return nil
	}
	if !models.CanTransition(apt.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, apt.Status, to)
	}

	switch to {
	case models.StatusConfirmed:
		return s.Confirm(ctx, apt)
	case models.StatusCompleted:
		return s.Complete(ctx, apt)
	case models.StatusCancelled:
		return s.Cancel(ctx, apt)
	}
	return ErrInvalidTransition
}

func (s *AppointmentService) Confirm(ctx context.Context, apt *models.Appointment) error {
	if err := s.guardedStatus(ctx, apt, models.StatusConfirmed, models.StatusPending); err != nil {
		return err
	}
	s.notifier.Send(ctx, KindConfirmation, apt)
	return nil
}

func (s *AppointmentService) Cancel(ctx context.Context, apt *models.Appointment) error {
	return s.guardedStatus(ctx, apt, models.StatusCancelled, models.StatusPending, models.StatusConfirmed)
}

func (s *AppointmentService) Complete(ctx context.Context, apt *models.Appointment) error {
	var ok bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ok, err = completeTx(tx, apt)
		return err
	})
	if err != nil {
		return fmt.Errorf("complete appointment: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, apt.Status, models.StatusCompleted)
	}
	markCompleted(apt)
	return nil
}

// guardedStatus only writes when the stored status is still one of from,
// so two concurrent requests cannot both take the same edge.
func (s *AppointmentService) guardedStatus(ctx context.Context, apt *models.Appointment, to string, from ...string) error {
	ok, err := statusTx(s.db.WithContext(ctx), apt.ID, to, from...)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, apt.Status, to)
	}
	apt.Status = to
	return nil
}

func statusTx(tx *gorm.DB, id uuid.UUID, to string, from ...string) (bool, error) {
	res := tx.Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateDetails saves the non-status fields of an appointment.
func (s *AppointmentService) UpdateDetails(ctx context.Context, apt *models.Appointment) error {
	if err := detailsTx(s.db.WithContext(ctx), apt); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

// Update saves the edited fields and, when to is set, moves the status in
// the same transaction. A rejected status leaves the stored row untouched.
func (s *AppointmentService) Update(ctx context.Context, apt *models.Appointment, to string) error {
	if to == "" || to == apt.Status {
		return s.UpdateDetails(ctx, apt)
	}
	if !models.IsValidStatus(to) {
		return ErrInvalidStatus
	}
	if !models.CanTransition(apt.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, apt.Status, to)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := detailsTx(tx, apt); err != nil {
			return err
		}
		var ok bool
		var err error
		if to == models.StatusCompleted {
			ok, err = completeTx(tx, apt)
		} else {
			ok, err = statusTx(tx, apt.ID, to, apt.Status)
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, apt.Status, to)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return err
		}
		return fmt.Errorf("update appointment: %w", err)
	}

	if to == models.StatusCompleted {
		markCompleted(apt)
		return nil
	}
	apt.Status = to
	if to == models.StatusConfirmed {
		s.notifier.Send(ctx, KindConfirmation, apt)
	}
	return nil
}

func detailsTx(tx *gorm.DB, apt *models.Appointment) error {
	apt.ScheduledAt = apt.ScheduledAt.UTC()
	return tx.Model(&models.Appointment{}).
		Where("id = ?", apt.ID).
		Updates(map[string]any{
			"barber_id":    apt.BarberID,
			"service_id":   apt.ServiceID,
			"client_name":  apt.ClientName,
			"phone":        apt.Phone,
			"scheduled_at": apt.ScheduledAt,
			"price":        apt.Price,
		}).Error
}

func (s *AppointmentService) Delete(ctx context.Context, shopID, id uuid.UUID) error {
	barbers := s.db.Model(&models.Barber{}).Select("id").Where("shop_id = ?", shopID)
	res := s.db.WithContext(ctx).Where("id = ? AND barber_id IN (?)", id, barbers).Delete(&models.Appointment{})
	if res.Error != nil {
		return fmt.Errorf("delete appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SlotTaken reports whether the barber already has a live appointment at
// the instant. exclude skips the appointment being edited.
func (s *AppointmentService) SlotTaken(ctx context.Context, barberID uuid.UUID, at time.Time, exclude *uuid.UUID) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("barber_id = ? AND scheduled_at = ? AND status <> ?", barberID, at.UTC(), models.StatusCancelled)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return n > 0, nil
}

// FindOrCreateClient links a booking to the shop's client with the same
// phone digits, creating one when none exists.
func (s *AppointmentService) FindOrCreateClient(ctx context.Context, shopID uuid.UUID, name, phone string) (*models.Client, error) {
	digits := utils.DigitsOnly(phone)
	if digits == "" {
		return nil, nil
	}

	var client models.Client
	err := s.db.WithContext(ctx).Where("shop_id = ? AND phone = ?", shopID, digits).First(&client).Error
	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find client: %w", err)
	}

	client = models.Client{ShopID: shopID, Name: orDefault(name, "Cliente"), Phone: digits}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &client, nil
}

type StatusCount struct {
	Status string
	Total  int64
}

func (s *AppointmentService) CountByStatus(ctx context.Context, shopID uuid.UUID) (map[string]int64, error) {
	barbers := s.db.Model(&models.Barber{}).Select("id").Where("shop_id = ?", shopID)
	var rows []StatusCount
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Select("status, COUNT(*) AS total").
		Where("barber_id IN (?)", barbers).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	counts := make(map[string]int64, len(models.Statuses))
	for _, st := range models.Statuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
