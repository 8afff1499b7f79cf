// services/reminder_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barberflow-backend/metrics"
	"barberflow-backend/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	DefaultWindowStart = 25
	DefaultWindowEnd   = 35
)

var ErrInvalidWindow = errors.New("invalid reminder window")

// ReminderService scans for confirmed appointments that fall inside the
// reminder window and have not been reminded yet.
type ReminderService struct {
	db       *gorm.DB
	notifier *NotificationService
	metrics  *metrics.Metrics
	now      func() time.Time
	log      zerolog.Logger
	cron     *cron.Cron
}

func NewReminderService(db *gorm.DB, notifier *NotificationService, m *metrics.Metrics, logger zerolog.Logger) *ReminderService {
	return &ReminderService{
		db:       db,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
		log:      logger.With().Str("component", "reminders").Logger(),
	}
}

// Run sends one reminder per due appointment and stamps reminder_sent_at
// after the send attempt. The stamp is not claimed up front, so two
// overlapping runs may both send for the same appointment.
func (s *ReminderService) Run(ctx context.Context, windowStart, windowEnd int) (int, error) {
	if windowStart < 0 || windowEnd < windowStart {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrInvalidWindow, windowStart, windowEnd)
	}

	now := s.now().UTC()
	from := now.Add(time.Duration(windowStart) * time.Minute)
	to := now.Add(time.Duration(windowEnd) * time.Minute)

	var due []models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Barber.Shop").
		Preload("Service").
		Where("status = ? AND reminder_sent_at IS NULL", models.StatusConfirmed).
		Where("scheduled_at BETWEEN ? AND ?", from, to).
		Order("scheduled_at ASC").
		Find(&due).Error
	if err != nil {
		s.metrics.ReminderRun("error", 0)
		return 0, fmt.Errorf("select due reminders: %w", err)
	}

	processed := 0
	for i := range due {
		apt := &due[i]
		s.notifier.Send(ctx, KindReminder, apt)

		res := s.db.WithContext(ctx).Model(&models.Appointment{}).
			Where("id = ? AND reminder_sent_at IS NULL", apt.ID).
			Update("reminder_sent_at", now)
		if res.Error != nil {
			s.log.Error().Err(res.Error).Str("appointment", apt.ID.String()).Msg("stamp reminder")
			continue
		}
		if res.RowsAffected > 0 {
			apt.ReminderSentAt = &now
			processed++
		}
	}

	s.metrics.ReminderRun("ok", processed)
	s.log.Info().
		Int("selected", len(due)).
		Int("processed", processed).
		Time("from", from).
		Time("to", to).
		Msg("reminder scan finished")
	return processed, nil
}

// Start schedules Run on a cron expression. A tick that fires while the
// previous run is still going is skipped.
func (s *ReminderService) Start(schedule string, windowStart, windowEnd int) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.Run(context.Background(), windowStart, windowEnd); err != nil {
			s.log.Error().Err(err).Msg("reminder scan failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminders %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info().Str("schedule", schedule).Int("window_start", windowStart).Int("window_end", windowEnd).Msg("reminder scheduler started")
	return nil
}

func (s *ReminderService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
