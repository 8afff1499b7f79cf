package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"barberflow-backend/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func newAppointmentService(db *gorm.DB, fake *fakeMessenger, now time.Time) *AppointmentService {
	n := NewNotificationService(fake, time.UTC, nil, zerolog.Nop())
	s := NewAppointmentService(db, n, nil, zerolog.Nop())
	s.now = fixedClock(now)
	return s
}

func loadClient(t *testing.T, db *gorm.DB, f fixture) models.Client {
	t.Helper()
	var c models.Client
	if err := db.First(&c, "id = ?", f.client.ID).Error; err != nil {
		t.Fatalf("load client: %v", err)
	}
	return c
}

func TestListAutoCompletesPastConfirmedOnce(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	apt := seedAppointment(t, db, f, at, models.StatusConfirmed)
	future := seedAppointment(t, db, f, at.Add(2*time.Hour), models.StatusConfirmed)

	s := newAppointmentService(db, &fakeMessenger{}, at.Add(time.Minute))
	day := ListFilter{From: at.Truncate(24 * time.Hour), To: at.Truncate(24 * time.Hour).Add(24 * time.Hour)}

	apts, err := s.List(context.Background(), f.shop.ID, day)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(apts))
	}
	if apts[0].ID != apt.ID || apts[0].Status != models.StatusCompleted {
		t.Fatalf("past appointment not completed: %+v", apts[0])
	}
	if apts[1].ID != future.ID || apts[1].Status != models.StatusConfirmed {
		t.Fatalf("future appointment changed: %+v", apts[1])
	}
	if apts[0].Client == nil || apts[0].Client.Visits != 1 {
		t.Fatalf("returned client not updated: %+v", apts[0].Client)
	}

	if _, err := s.List(context.Background(), f.shop.ID, day); err != nil {
		t.Fatalf("second list: %v", err)
	}
	c := loadClient(t, db, f)
	if c.Visits != 1 || c.TotalSpent != 50 {
		t.Fatalf("client stats applied more than once: visits=%d spent=%v", c.Visits, c.TotalSpent)
	}

	var stored models.Appointment
	db.First(&stored, "id = ?", apt.ID)
	if stored.Status != models.StatusCompleted {
		t.Fatalf("stored status = %q", stored.Status)
	}
}

func TestListScopesToShop(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	seedAppointment(t, db, f, at, models.StatusPending)

	other := models.Shop{OwnerID: f.shop.OwnerID, Name: "Outra", Slug: "outra"}
	db.Create(&other)

	s := newAppointmentService(db, &fakeMessenger{}, at)
	apts, err := s.List(context.Background(), other.ID, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apts) != 0 {
		t.Fatalf("leaked %d appointments across shops", len(apts))
	}
}

func TestTransitionRules(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s := newAppointmentService(db, &fakeMessenger{}, at.Add(-time.Hour))
	ctx := context.Background()

	pending := seedAppointment(t, db, f, at, models.StatusPending)
	if err := s.Transition(ctx, &pending, models.StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> completed: expected ErrInvalidTransition, got %v", err)
	}
	if err := s.Transition(ctx, &pending, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unknown status: expected ErrInvalidStatus, got %v", err)
	}
	if err := s.Transition(ctx, &pending, models.StatusPending); err != nil {
		t.Fatalf("same status should be a no-op, got %v", err)
	}

	if err := s.Transition(ctx, &pending, models.StatusCancelled); err != nil {
		t.Fatalf("pending -> cancelled: %v", err)
	}
	if err := s.Transition(ctx, &pending, models.StatusConfirmed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancelled is terminal, got %v", err)
	}

	confirmed := seedAppointment(t, db, f, at.Add(time.Hour), models.StatusConfirmed)
	if err := s.Transition(ctx, &confirmed, models.StatusCompleted); err != nil {
		t.Fatalf("confirmed -> completed: %v", err)
	}
	if err := s.Transition(ctx, &confirmed, models.StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed is terminal, got %v", err)
	}
	if c := loadClient(t, db, f); c.Visits != 1 || c.TotalSpent != 50 {
		t.Fatalf("unexpected client stats visits=%d spent=%v", c.Visits, c.TotalSpent)
	}
}

func TestCompleteIsGuardedByStoredStatus(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s := newAppointmentService(db, &fakeMessenger{}, at)

	apt := seedAppointment(t, db, f, at, models.StatusConfirmed)
	stale := apt

	if err := s.Complete(context.Background(), &apt); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.Complete(context.Background(), &stale); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("stale copy: expected ErrInvalidTransition, got %v", err)
	}
	if c := loadClient(t, db, f); c.Visits != 1 {
		t.Fatalf("visits = %d", c.Visits)
	}
}

func TestConfirmNotifiesClient(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	fake := &fakeMessenger{}
	s := newAppointmentService(db, fake, at.Add(-time.Hour))

	seeded := seedAppointment(t, db, f, at, models.StatusPending)
	apt, err := s.Get(context.Background(), f.shop.ID, seeded.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := s.Transition(context.Background(), apt, models.StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	msgs := fake.messages()
	if len(msgs) != 1 || msgs[0].Phone != "5511977776666" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestConfirmSucceedsWhenSendFails(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s := newAppointmentService(db, &fakeMessenger{err: errSendFailed}, at.Add(-time.Hour))

	seeded := seedAppointment(t, db, f, at, models.StatusPending)
	apt, err := s.Get(context.Background(), f.shop.ID, seeded.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := s.Confirm(context.Background(), apt); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	var stored models.Appointment
	db.First(&stored, "id = ?", apt.ID)
	if stored.Status != models.StatusConfirmed {
		t.Fatalf("status = %q", stored.Status)
	}
}

func TestCreateRejectsTerminalStatus(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	s := newAppointmentService(db, &fakeMessenger{}, time.Now())

	apt := models.Appointment{
		BarberID:    f.barber.ID,
		Barber:      f.barber,
		ServiceID:   f.service.ID,
		Service:     f.service,
		ClientName:  "Carlos",
		ScheduledAt: time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
		Status:      models.StatusCompleted,
	}
	if err := s.Create(context.Background(), &apt); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCreateNotifiesShop(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	fake := &fakeMessenger{}
	s := newAppointmentService(db, fake, time.Now())

	barber := f.barber
	barber.Shop = f.shop
	apt := models.Appointment{
		BarberID:    barber.ID,
		Barber:      barber,
		ServiceID:   f.service.ID,
		Service:     f.service,
		ClientName:  "Carlos",
		ScheduledAt: time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
		Price:       50,
	}
	if err := s.Create(context.Background(), &apt); err != nil {
		t.Fatalf("create: %v", err)
	}
	if apt.Status != models.StatusPending {
		t.Fatalf("default status = %q", apt.Status)
	}

	msgs := fake.messages()
	if len(msgs) != 1 || msgs[0].Phone != "5511988887777" {
		t.Fatalf("unexpected messages %+v", msgs)
	}

	taken, err := s.SlotTaken(context.Background(), barber.ID, apt.ScheduledAt, nil)
	if err != nil || !taken {
		t.Fatalf("slot should be taken: %v %v", taken, err)
	}
	taken, _ = s.SlotTaken(context.Background(), barber.ID, apt.ScheduledAt, &apt.ID)
	if taken {
		t.Fatalf("excluded appointment must not count")
	}
}

func TestFindOrCreateClientMatchesDigits(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	s := newAppointmentService(db, &fakeMessenger{}, time.Now())
	ctx := context.Background()

	c, err := s.FindOrCreateClient(ctx, f.shop.ID, "Carlos", "(11) 97777-6666")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.ID != f.client.ID {
		t.Fatalf("expected existing client")
	}

	created, err := s.FindOrCreateClient(ctx, f.shop.ID, "", "21 95555-4444")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == f.client.ID || created.Phone != "21955554444" || created.Name != "Cliente" {
		t.Fatalf("unexpected client %+v", created)
	}

	none, err := s.FindOrCreateClient(ctx, f.shop.ID, "Sem telefone", "")
	if err != nil || none != nil {
		t.Fatalf("empty phone should yield no client, got %+v %v", none, err)
	}
}

func TestCountByStatus(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	seedAppointment(t, db, f, at, models.StatusPending)
	seedAppointment(t, db, f, at.Add(time.Hour), models.StatusPending)
	seedAppointment(t, db, f, at.Add(2*time.Hour), models.StatusCancelled)

	s := newAppointmentService(db, &fakeMessenger{}, at)
	counts, err := s.CountByStatus(context.Background(), f.shop.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[models.StatusPending] != 2 || counts[models.StatusCancelled] != 1 || counts[models.StatusCompleted] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestUpdateRejectedStatusLeavesRowUntouched(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s := newAppointmentService(db, &fakeMessenger{}, at)

	apt := seedAppointment(t, db, f, at, models.StatusPending)
	apt.Price = 999
	apt.ClientName = "Mudou"
	if err := s.Update(context.Background(), &apt, models.StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := s.Update(context.Background(), &apt, "finished"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	var stored models.Appointment
	if err := db.First(&stored, "id = ?", apt.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.Price != 50 || stored.ClientName != "Carlos" || stored.Status != models.StatusPending {
		t.Fatalf("row changed: price=%v name=%q status=%s", stored.Price, stored.ClientName, stored.Status)
	}
}

func TestUpdateStaleStatusRollsBackDetails(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s := newAppointmentService(db, &fakeMessenger{}, at)

	apt := seedAppointment(t, db, f, at, models.StatusPending)
	db.Model(&models.Appointment{}).Where("id = ?", apt.ID).Update("status", models.StatusCancelled)

	apt.Price = 70
	if err := s.Update(context.Background(), &apt, models.StatusConfirmed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var stored models.Appointment
	db.First(&stored, "id = ?", apt.ID)
	if stored.Price != 50 || apt.Status != models.StatusPending {
		t.Fatalf("price=%v in-memory status=%s", stored.Price, apt.Status)
	}
}

func TestUpdateCompletesWithEditedPrice(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	at := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	s := newAppointmentService(db, &fakeMessenger{}, at)

	apt := seedAppointment(t, db, f, at, models.StatusConfirmed)
	apt.Price = 80
	if err := s.Update(context.Background(), &apt, models.StatusCompleted); err != nil {
		t.Fatalf("update: %v", err)
	}
	if apt.Status != models.StatusCompleted {
		t.Fatalf("status = %s", apt.Status)
	}
	if c := loadClient(t, db, f); c.Visits != 1 || c.TotalSpent != 80 {
		t.Fatalf("client stats visits=%d spent=%v", c.Visits, c.TotalSpent)
	}
}
