package service

import (
	"context"
	"strconv"
	"strings"

	"buildops/internal/domain"
	"buildops/internal/events"
	"buildops/internal/metrics"
	"buildops/internal/models"

	"github.com/rs/zerolog"
)

// CreateBookingInput is the request to book a day. Date accepts a calendar
// day or a full timestamp; both are normalized to YYYY-MM-DD.
type CreateBookingInput struct {
	ClientID  int64
	Date      string
	LineItems []models.LineItem
	Notes     string
}

type BookingResult struct {
	Booking models.Booking `json:"booking"`
	Payment models.Payment `json:"payment"`
}

// PaymentView is a payment with its client reference resolved.
type PaymentView struct {
	models.Payment
	ClientName string `json:"clientName"`
}

type PaymentFilter struct {
	Status string // empty matches all
	Search string // client name or payment id substring
}

// BookingService turns booking requests into priced bookings with a linked
// invoice and keeps both in sync on edit and delete.
type BookingService struct {
	state    *State
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewBookingService(state *State, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		state:    state,
		eventBus: eventBus,
		logger:   logger,
	}
}

func validateLineItems(items []models.LineItem) error {
	if len(items) == 0 {
		return invalid("services", "at least one line item is required")
	}
	for i, item := range items {
		if !item.Hours.IsPositive() {
			return invalid("services["+strconv.Itoa(i)+"].hours", "must be greater than zero")
		}
	}
	return nil
}

func copyLineItems(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, len(items))
	copy(out, items)
	return out
}

// dayTaken returns the booking holding day, ignoring exceptID; mu must be held.
func (s *State) dayTaken(day models.Day, exceptID int64) (models.Booking, bool) {
	return s.bookings.FindFunc(func(b models.Booking) bool {
		return b.ID != exceptID && b.Date == day
	})
}

func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (BookingResult, error) {
	var result BookingResult
	day, err := models.ParseDay(in.Date)
	if err != nil {
		return result, invalid("date", err.Error())
	}
	if err := validateLineItems(in.LineItems); err != nil {
		return result, err
	}

	var clientName string
	err = s.state.mutate(ctx, func() ([]string, error) {
		// Проверяем, что день свободен, до любых изменений
		if existing, taken := s.state.dayTaken(day, 0); taken {
			return nil, &DuplicateDateError{Date: day, BookingID: existing.ID}
		}

		now := s.state.now()
		booking := models.Booking{
			ID:        s.state.ids.Next(),
			ClientID:  in.ClientID,
			Date:      day,
			Services:  copyLineItems(in.LineItems),
			Notes:     in.Notes,
			Status:    models.StatusScheduled,
			CreatedAt: now,
		}
		booking.TotalAmount = s.state.lineTotal(booking.Services)

		payment := models.Payment{
			ID:        s.state.ids.Next(),
			BookingID: booking.ID,
			ClientID:  booking.ClientID,
			Amount:    booking.TotalAmount,
			Status:    models.PaymentUnpaid,
			CreatedAt: now,
		}

		s.state.bookings.Append(booking)
		s.state.payments.Append(payment)
		clientName = s.state.clientName(booking.ClientID)
		result = BookingResult{Booking: booking.Clone(), Payment: payment}
		return []string{models.KeyBookings, models.KeyPayments}, nil
	})
	metrics.IncOperation("create_booking", err)
	if err != nil {
		return BookingResult{}, err
	}

	s.logger.Info().
		Int64("booking_id", result.Booking.ID).
		Int64("payment_id", result.Payment.ID).
		Str("date", result.Booking.Date.String()).
		Str("total", result.Booking.TotalAmount.StringFixed(2)).
		Msg("booking created")
	s.publishBooking(events.EventBookingCreated, result.Booking, result.Payment.ID, clientName)
	return result, nil
}

// UpdateBooking replaces the stored booking and reprices it at current rates.
// The linked payment follows the new total; its status and timestamps stay.
// An empty status keeps the stored one; a different status is rejected with
// ErrInvalidTransition, status changes go through ChangeStatus.
func (s *BookingService) UpdateBooking(ctx context.Context, booking models.Booking) error {
	day, err := models.ParseDay(booking.Date.String())
	if err != nil {
		return invalid("date", err.Error())
	}
	if err := validateLineItems(booking.Services); err != nil {
		return err
	}
	if booking.Status != "" && !models.IsBookingStatus(booking.Status) {
		return invalid("status", "unknown status "+booking.Status)
	}

	var (
		updated    models.Booking
		paymentID  int64
		clientName string
	)
	err = s.state.mutate(ctx, func() ([]string, error) {
		stored, ok := s.state.bookings.Find(booking.ID)
		if !ok {
			return nil, ErrBookingNotFound
		}
		if existing, taken := s.state.dayTaken(day, booking.ID); taken {
			return nil, &DuplicateDateError{Date: day, BookingID: existing.ID}
		}

		updated = booking
		updated.Date = day
		updated.Services = copyLineItems(booking.Services)
		updated.CreatedAt = stored.CreatedAt
		if updated.Status == "" {
			updated.Status = stored.Status
		}
		// статус меняется только через ChangeStatus
		if updated.Status != stored.Status {
			return nil, ErrInvalidTransition
		}
		updated.TotalAmount = s.state.lineTotal(updated.Services)
		s.state.bookings.Replace(updated.Clone())
		clientName = s.state.clientName(updated.ClientID)

		keys := []string{models.KeyBookings}
		payment, ok := s.state.payments.FindFunc(func(p models.Payment) bool {
			return p.BookingID == updated.ID
		})
		if ok {
			payment.Amount = updated.TotalAmount
			payment.ClientID = updated.ClientID
			s.state.payments.Replace(payment)
			paymentID = payment.ID
			keys = append(keys, models.KeyPayments)
		}
		return keys, nil
	})
	metrics.IncOperation("update_booking", err)
	if err != nil {
		return err
	}

	s.publishBooking(events.EventBookingUpdated, updated, paymentID, clientName)
	return nil
}

// DeleteBooking removes the booking and every payment referencing it.
// Deleting an unknown id is a no-op.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) error {
	var (
		removed models.Booking
		found   bool
	)
	err := s.state.mutate(ctx, func() ([]string, error) {
		removed, found = s.state.bookings.Find(id)
		if !found {
			return nil, nil
		}
		s.state.bookings.Remove(id)
		s.state.payments.RemoveFunc(func(p models.Payment) bool { return p.BookingID == id })
		return []string{models.KeyBookings, models.KeyPayments}, nil
	})
	metrics.IncOperation("delete_booking", err)
	if err != nil || !found {
		return err
	}

	s.publishBooking(events.EventBookingDeleted, removed, 0, "")
	return nil
}

// ProcessPayment marks an unpaid payment as paid. Paying twice keeps the
// original paid timestamp.
func (s *BookingService) ProcessPayment(ctx context.Context, paymentID int64) (models.Payment, error) {
	var (
		payment models.Payment
		changed bool
	)
	err := s.state.mutate(ctx, func() ([]string, error) {
		var ok bool
		payment, ok = s.state.payments.Find(paymentID)
		if !ok {
			return nil, ErrPaymentNotFound
		}
		if payment.IsPaid() {
			return nil, nil
		}
		paidAt := s.state.now()
		payment.Status = models.PaymentPaid
		payment.PaidAt = &paidAt
		s.state.payments.Replace(payment)
		changed = true
		return []string{models.KeyPayments}, nil
	})
	metrics.IncOperation("process_payment", err)
	if err != nil {
		return models.Payment{}, err
	}

	if changed && s.eventBus != nil {
		payload := events.PaymentEventPayload{
			PaymentID: payment.ID,
			BookingID: payment.BookingID,
			ClientID:  payment.ClientID,
			Amount:    payment.Amount,
			PaidAt:    *payment.PaidAt,
		}
		if err := s.eventBus.PublishJSON(events.EventPaymentProcessed, payload); err != nil {
			s.logger.Error().Err(err).Int64("payment_id", payment.ID).Msg("publish event error")
		}
	}
	return payment, nil
}

// ChangeStatus moves a scheduled booking to Completed or Cancelled.
func (s *BookingService) ChangeStatus(ctx context.Context, id int64, status string) (models.Booking, error) {
	if !models.IsBookingStatus(status) {
		return models.Booking{}, invalid("status", "unknown status "+status)
	}

	var (
		booking    models.Booking
		clientName string
	)
	err := s.state.mutate(ctx, func() ([]string, error) {
		var ok bool
		booking, ok = s.state.bookings.Find(id)
		if !ok {
			return nil, ErrBookingNotFound
		}
		if booking.Status != models.StatusScheduled || status == models.StatusScheduled {
			return nil, ErrInvalidTransition
		}
		booking.Status = status
		s.state.bookings.Replace(booking)
		booking = booking.Clone()
		clientName = s.state.clientName(booking.ClientID)
		return []string{models.KeyBookings}, nil
	})
	metrics.IncOperation("change_booking_status", err)
	if err != nil {
		return models.Booking{}, err
	}

	s.publishBooking(events.EventBookingStatusChanged, booking, 0, clientName)
	return booking, nil
}

func (s *BookingService) ListBookings(ctx context.Context) []models.Booking {
	var out []models.Booking
	s.state.read(func() { out = models.CloneBookings(s.state.bookings.All()) })
	return out
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	var (
		booking models.Booking
		ok      bool
	)
	s.state.read(func() { booking, ok = s.state.bookings.Find(id) })
	if !ok {
		return models.Booking{}, ErrBookingNotFound
	}
	return booking.Clone(), nil
}

// BookingsOnDay returns the bookings for the schedule view of one day.
func (s *BookingService) BookingsOnDay(ctx context.Context, day models.Day) []models.Booking {
	var out []models.Booking
	s.state.read(func() {
		out = models.CloneBookings(s.state.bookings.Filter(func(b models.Booking) bool { return b.Date == day }))
	})
	return out
}

func (s *BookingService) GetPayment(ctx context.Context, id int64) (PaymentView, error) {
	var (
		view PaymentView
		ok   bool
	)
	s.state.read(func() {
		var payment models.Payment
		payment, ok = s.state.payments.Find(id)
		view = PaymentView{Payment: payment, ClientName: s.state.clientName(payment.ClientID)}
	})
	if !ok {
		return PaymentView{}, ErrPaymentNotFound
	}
	return view, nil
}

func (s *BookingService) ListPayments(ctx context.Context, filter PaymentFilter) []PaymentView {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []PaymentView
	s.state.read(func() {
		for _, payment := range s.state.payments.All() {
			if filter.Status != "" && payment.Status != filter.Status {
				continue
			}
			name := s.state.clientName(payment.ClientID)
			if search != "" &&
				!strings.Contains(strings.ToLower(name), search) &&
				!strings.Contains(strconv.FormatInt(payment.ID, 10), search) {
				continue
			}
			out = append(out, PaymentView{Payment: payment, ClientName: name})
		}
	})
	return out
}

func (s *BookingService) publishBooking(eventType string, booking models.Booking, paymentID int64, clientName string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		ClientID:    booking.ClientID,
		ClientName:  clientName,
		PaymentID:   paymentID,
		Date:        booking.Date.String(),
		Status:      booking.Status,
		TotalAmount: booking.TotalAmount,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
