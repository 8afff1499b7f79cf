// services/notification_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"barberflow-backend/metrics"
	"barberflow-backend/models"
	"barberflow-backend/services/messaging"
	"barberflow-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type NotificationKind string

const (
	KindNewAppointment NotificationKind = "new_appointment"
	KindConfirmation   NotificationKind = "confirmation"
	KindReminder       NotificationKind = "reminder"
)

// NotificationService composes appointment messages and hands them to the
// messenger. Send never reports failure to its caller.
type NotificationService struct {
	messenger messaging.Messenger
	loc       *time.Location
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewNotificationService(messenger messaging.Messenger, loc *time.Location, m *metrics.Metrics, logger zerolog.Logger) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		messenger: messenger,
		loc:       loc,
		metrics:   m,
		log:       logger.With().Str("component", "notifications").Logger(),
	}
}

// Send requires apt.Barber.Shop and apt.Service to be loaded. A missing
// recipient or a disabled channel is a silent no-op.
func (s *NotificationService) Send(ctx context.Context, kind NotificationKind, apt *models.Appointment) {
	shop := &apt.Barber.Shop
	if shop.ID == uuid.Nil || s.messenger == nil {
		return
	}

	recipient := s.recipient(kind, apt)
	if recipient == "" || !s.messenger.IsEnabled(shop) {
		s.metrics.Notification(string(kind), "skipped")
		return
	}
	phone := utils.NormalizePhone(recipient)
	if phone == "" {
		s.metrics.Notification(string(kind), "skipped")
		return
	}

	text, ok := s.compose(kind, apt)
	if !ok {
		s.log.Warn().Str("kind", string(kind)).Msg("unknown notification kind")
		return
	}
	s.sendSafe(ctx, kind, shop, phone, text)
}

func (s *NotificationService) recipient(kind NotificationKind, apt *models.Appointment) string {
	if kind == KindConfirmation {
		return apt.Phone
	}
	return apt.Barber.Shop.Phone
}

func (s *NotificationService) compose(kind NotificationKind, apt *models.Appointment) (string, bool) {
	at := apt.ScheduledAt.In(s.loc)
	date := at.Format("02/01/2006")
	clock := at.Format("15:04")
	clientName := orDefault(apt.ClientName, "Cliente")
	barberName := orDefault(apt.Barber.Name, "Barbeiro")

	switch kind {
	case KindNewAppointment:
		return fmt.Sprintf("🆕 *Novo agendamento (Barberflow)*\n\n"+
			"Cliente: *%s*\n"+
			"Data: %s às %s\n"+
			"Serviço: %s\n"+
			"Barbeiro: %s\n"+
			"Status: pendente de confirmação.",
			clientName, date, clock, orDefault(apt.Service.Name, "Serviço"), barberName), true
	case KindConfirmation:
		return fmt.Sprintf("✅ *Agendamento confirmado!*\n\n"+
			"Olá! A *%s* confirmou seu agendamento.\n\n"+
			"📅 Data: %s\n"+
			"🕐 Horário: %s\n"+
			"✂️ Serviço: %s\n\n"+
			"Te esperamos!",
			apt.Barber.Shop.Name, date, clock, orDefault(apt.Service.Name, "serviço")), true
	case KindReminder:
		return fmt.Sprintf("⏰ *Lembrete – Agendamento em 30 min*\n\n"+
			"Cliente: *%s*\n"+
			"Horário: %s às %s\n"+
			"Serviço: %s\n"+
			"Barbeiro: %s",
			clientName, date, clock, orDefault(apt.Service.Name, "Serviço"), barberName), true
	}
	return "", false
}

func (s *NotificationService) sendSafe(ctx context.Context, kind NotificationKind, shop *models.Shop, phone, text string) {
	log := s.log.With().Str("kind", string(kind)).Str("shop", shop.ID.String()).Str("phone", utils.MaskPhone(phone)).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("whatsapp send panicked")
			s.metrics.Notification(string(kind), "failed")
		}
	}()

	if err := s.messenger.SendText(ctx, shop, phone, text); err != nil {
		log.Error().Err(err).Msg("whatsapp send failed")
		s.metrics.Notification(string(kind), "failed")
		return
	}
	log.Info().Msg("whatsapp sent")
	s.metrics.Notification(string(kind), "sent")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
