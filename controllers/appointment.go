package controllers

import (
	"errors"
	"net/http"
	"time"

	"barberflow-backend/models"
	"barberflow-backend/services"
	"barberflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentInput struct {
	BarberID   uuid.UUID `json:"barberId" binding:"required"`
	ServiceID  uuid.UUID `json:"serviceId" binding:"required"`
	ClientName string    `json:"clientName" binding:"required"`
	Phone      string    `json:"phone"`
	Date       string    `json:"date" binding:"required"` // 2006-01-02
	Time       string    `json:"time" binding:"required"` // 15:04
	Status     string    `json:"status"`
	Price      *float64  `json:"price"`

	// ClientID links an existing client of the shop; without it the
	// booking is matched to a client by phone.
	ClientID *uuid.UUID `json:"clientId"`
}

type UpdateAppointmentInput struct {
	BarberID   *uuid.UUID `json:"barberId"`
	ServiceID  *uuid.UUID `json:"serviceId"`
	ClientName *string    `json:"clientName"`
	Phone      *string    `json:"phone"`
	Date       *string    `json:"date"`
	Time       *string    `json:"time"`
	Price      *float64   `json:"price"`
	Status     *string    `json:"status"`
}

// ListAppointments accepts ?date=, ?start_date=&end_date= or neither
// (today). Reading confirmed appointments whose time has passed completes
// them.
func (h *Handler) ListAppointments(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var filter services.ListFilter
	var err error
	switch {
	case c.Query("start_date") != "" && c.Query("end_date") != "":
		var end time.Time
		filter.From, _, err = utils.DayRange(c.Query("start_date"), h.Location)
		if err == nil {
			_, end, err = utils.DayRange(c.Query("end_date"), h.Location)
			filter.To = end
		}
	case c.Query("date") != "":
		filter.From, filter.To, err = utils.DayRange(c.Query("date"), h.Location)
	default:
		filter.From = utils.BeginningOfDay(time.Now().In(h.Location))
		filter.To = filter.From.AddDate(0, 0, 1)
	}
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if raw := c.Query("barber_id"); raw != "" {
		barberID, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid barber ID format")
			return
		}
		filter.BarberID = &barberID
	}
	if st := c.Query("status"); st != "" {
		if !models.IsValidStatus(st) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid status")
			return
		}
		filter.Status = st
	}

	apts, err := h.Appointments.List(c.Request.Context(), shopID, filter)
	if err != nil {
		h.Log.Error().Err(err).Msg("list appointments")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}
	c.JSON(http.StatusOK, apts)
}

func (h *Handler) PendingAppointments(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	apts, err := h.Appointments.List(c.Request.Context(), shopID, services.ListFilter{Status: models.StatusPending})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}
	c.JSON(http.StatusOK, apts)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var input AppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	apt, ok := h.bookAppointment(c, shopID, input)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, apt)
}

// bookAppointment is shared by the shop panel and the public booking page.
func (h *Handler) bookAppointment(c *gin.Context, shopID uuid.UUID, input AppointmentInput) (*models.Appointment, bool) {
	ctx := c.Request.Context()

	at, err := utils.ParseDateTime(input.Date, input.Time, h.Location)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return nil, false
	}

	var barber models.Barber
	if err := h.DB.WithContext(ctx).Preload("Shop").Where("id = ? AND shop_id = ?", input.BarberID, shopID).First(&barber).Error; err != nil {
		respondLookupError(c, err, "Barber not found")
		return nil, false
	}
	var service models.Service
	if err := h.DB.WithContext(ctx).Where("id = ? AND shop_id = ?", input.ServiceID, shopID).First(&service).Error; err != nil {
		respondLookupError(c, err, "Service not found")
		return nil, false
	}

	taken, err := h.Appointments.SlotTaken(ctx, barber.ID, at, nil)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return nil, false
	}
	if taken {
		utils.RespondWithError(c, http.StatusConflict, "Barber already booked at this time")
		return nil, false
	}

	apt := models.Appointment{
		BarberID:    barber.ID,
		Barber:      barber,
		ServiceID:   service.ID,
		Service:     service,
		ClientName:  input.ClientName,
		Phone:       utils.DigitsOnly(input.Phone),
		ScheduledAt: at,
		Status:      input.Status,
		Price:       service.Price,
	}
	if input.Price != nil {
		apt.Price = *input.Price
	}

	var client *models.Client
	if input.ClientID != nil {
		var linked models.Client
		if err := h.DB.WithContext(ctx).Where("id = ? AND shop_id = ?", *input.ClientID, shopID).First(&linked).Error; err != nil {
			respondLookupError(c, err, "Client not found")
			return nil, false
		}
		client = &linked
	} else {
		client, err = h.Appointments.FindOrCreateClient(ctx, shopID, input.ClientName, input.Phone)
		if err != nil {
			h.Log.Error().Err(err).Msg("find or create client")
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to register client")
			return nil, false
		}
	}
	if client != nil {
		apt.ClientID = &client.ID
		apt.Client = client
	}

	if err := h.Appointments.Create(ctx, &apt); err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			utils.RespondWithError(c, http.StatusBadRequest, "New appointments must be pending or confirmed")
			return nil, false
		}
		h.Log.Error().Err(err).Msg("create appointment")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create appointment")
		return nil, false
	}
	return &apt, true
}

func (h *Handler) GetAppointment(c *gin.Context) {
	apt, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, apt)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	apt, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	var input UpdateAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	if input.BarberID != nil && *input.BarberID != apt.BarberID {
		var barber models.Barber
		if err := h.DB.WithContext(ctx).Preload("Shop").Where("id = ? AND shop_id = ?", *input.BarberID, apt.Barber.ShopID).First(&barber).Error; err != nil {
			respondLookupError(c, err, "Barber not found")
			return
		}
		apt.BarberID = barber.ID
		apt.Barber = barber
	}
	if input.ServiceID != nil && *input.ServiceID != apt.ServiceID {
		var service models.Service
		if err := h.DB.WithContext(ctx).Where("id = ? AND shop_id = ?", *input.ServiceID, apt.Barber.ShopID).First(&service).Error; err != nil {
			respondLookupError(c, err, "Service not found")
			return
		}
		apt.ServiceID = service.ID
		apt.Service = service
	}
	if input.ClientName != nil {
		apt.ClientName = *input.ClientName
	}
	if input.Phone != nil {
		apt.Phone = utils.DigitsOnly(*input.Phone)
	}
	if input.Price != nil {
		apt.Price = *input.Price
	}
	if input.Date != nil || input.Time != nil {
		local := apt.ScheduledAt.In(h.Location)
		date, clock := local.Format("2006-01-02"), local.Format("15:04")
		if input.Date != nil {
			date = *input.Date
		}
		if input.Time != nil {
			clock = *input.Time
		}
		at, err := utils.ParseDateTime(date, clock, h.Location)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		apt.ScheduledAt = at
	}

	taken, err := h.Appointments.SlotTaken(ctx, apt.BarberID, apt.ScheduledAt, &apt.ID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		utils.RespondWithError(c, http.StatusConflict, "Barber already booked at this time")
		return
	}

	var to string
	if input.Status != nil {
		to = *input.Status
	}
	if err := h.Appointments.Update(ctx, apt, to); err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

func (h *Handler) ConfirmAppointment(c *gin.Context) {
	h.transition(c, models.StatusConfirmed)
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	h.transition(c, models.StatusCompleted)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	h.transition(c, models.StatusCancelled)
}

func (h *Handler) transition(c *gin.Context, to string) {
	apt, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if err := h.Appointments.Transition(c.Request.Context(), apt, to); err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "appointment")
	if !ok {
		return
	}

	if err := h.Appointments.Delete(c.Request.Context(), shopID, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Appointment not found")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete appointment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment deleted"})
}

func (h *Handler) loadAppointment(c *gin.Context) (*models.Appointment, bool) {
	shopID, ok := currentShopID(c)
	if !ok {
		return nil, false
	}
	id, ok := paramUUID(c, "id", "appointment")
	if !ok {
		return nil, false
	}

	apt, err := h.Appointments.Get(c.Request.Context(), shopID, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Appointment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return apt, true
}

func respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update appointment status")
	}
}

func respondLookupError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, notFound)
		return
	}
	utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
}
