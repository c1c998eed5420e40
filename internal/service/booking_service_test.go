package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"buildops/internal/events"
	"buildops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func scenarioA(t *testing.T, f *fixture) BookingResult {
	t.Helper()
	res, err := f.bookings.CreateBooking(context.Background(), CreateBookingInput{
		ClientID:  1,
		Date:      "2024-06-01",
		LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("2")}},
	})
	require.NoError(t, err)
	return res
}

func TestCreateBooking_ScenarioA(t *testing.T) {
	f := newFixture(scenarioSeeds())
	res := scenarioA(t, f)

	assert.True(t, res.Booking.TotalAmount.Equal(money("150")))
	assert.Equal(t, models.StatusScheduled, res.Booking.Status)
	assert.Equal(t, models.Day("2024-06-01"), res.Booking.Date)
	assert.False(t, res.Booking.CreatedAt.IsZero())

	assert.True(t, res.Payment.Amount.Equal(money("150")))
	assert.Equal(t, models.PaymentUnpaid, res.Payment.Status)
	assert.Equal(t, res.Booking.ID, res.Payment.BookingID)
	assert.Equal(t, int64(1), res.Payment.ClientID)
	assert.Nil(t, res.Payment.PaidAt)
	assert.NotEqual(t, res.Booking.ID, res.Payment.ID)
}

func TestCreateBooking_DuplicateDate(t *testing.T) {
	f := newFixture(scenarioSeeds())
	first := scenarioA(t, f)
	ctx := context.Background()

	tests := []struct {
		name string
		date string
	}{
		{name: "same day", date: "2024-06-01"},
		{name: "timestamp on same day", date: "2024-06-01T15:30:00Z"},
		{name: "offset that lands on same utc day", date: "2024-06-01T01:00:00+01:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.CreateBooking(ctx, CreateBookingInput{
				ClientID:  1,
				Date:      tt.date,
				LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1")}},
			})
			require.ErrorIs(t, err, ErrDuplicateDate)

			var dup *DuplicateDateError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, first.Booking.ID, dup.BookingID)
			assert.Equal(t, models.Day("2024-06-01"), dup.Date)

			assert.Len(t, f.bookings.ListBookings(ctx), 1)
			assert.Len(t, f.bookings.ListPayments(ctx, PaymentFilter{}), 1)
		})
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()

	tests := []struct {
		name  string
		in    CreateBookingInput
		field string
	}{
		{name: "no line items", in: CreateBookingInput{ClientID: 1, Date: "2024-06-01"}, field: "services"},
		{name: "zero hours", in: CreateBookingInput{ClientID: 1, Date: "2024-06-01", LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("0")}}}, field: "services[0].hours"},
		{name: "negative hours", in: CreateBookingInput{ClientID: 1, Date: "2024-06-01", LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1")}, {ServiceID: 1, Hours: hours("-2")}}}, field: "services[1].hours"},
		{name: "bad date", in: CreateBookingInput{ClientID: 1, Date: "next tuesday", LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1")}}}, field: "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.CreateBooking(ctx, tt.in)
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Empty(t, f.bookings.ListBookings(ctx))
	assert.Empty(t, f.persister.keys())
}

func TestCreateBooking_SoftReferences(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()

	res, err := f.bookings.CreateBooking(ctx, CreateBookingInput{
		ClientID:  404,
		Date:      "2024-06-02",
		LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1.5")}, {ServiceID: 99, Hours: hours("4")}},
	})
	require.NoError(t, err)
	assert.True(t, res.Booking.TotalAmount.Equal(money("112.5")), "unknown service contributes zero")

	payments := f.bookings.ListPayments(ctx, PaymentFilter{})
	require.Len(t, payments, 1)
	assert.Equal(t, models.UnknownClient, payments[0].ClientName)
}

// P1 and P2 over a sequence of creates.
func TestCreateBooking_UniquenessAndLinkage(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()
	dates := []string{"2024-06-01", "2024-06-02", "2024-06-01", "2024-06-03", "2024-06-02T10:00:00Z", "2024-06-04"}

	var created []BookingResult
	for i, date := range dates {
		res, err := f.bookings.CreateBooking(ctx, CreateBookingInput{
			ClientID:  1,
			Date:      date,
			LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1")}, {ServiceID: 1, Hours: hours("0.5")}},
		})
		if err != nil {
			require.ErrorIs(t, err, ErrDuplicateDate, "create %d", i)
			continue
		}
		created = append(created, res)
	}
	require.Len(t, created, 4)

	seen := map[models.Day]bool{}
	for _, b := range f.bookings.ListBookings(ctx) {
		assert.False(t, seen[b.Date], "duplicate date %s", b.Date)
		seen[b.Date] = true
	}

	payments := f.bookings.ListPayments(ctx, PaymentFilter{})
	for _, res := range created {
		var linked []PaymentView
		for _, p := range payments {
			if p.BookingID == res.Booking.ID {
				linked = append(linked, p)
			}
		}
		require.Len(t, linked, 1)
		assert.True(t, linked[0].Amount.Equal(res.Booking.TotalAmount))
	}
}

func TestCreateBooking_ConcurrentSameDay(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bookings.CreateBooking(ctx, CreateBookingInput{
				ClientID:  1,
				Date:      "2024-07-01",
				LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1")}},
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, f.bookings.ListBookings(ctx), 1)
	assert.Len(t, f.bookings.ListPayments(ctx, PaymentFilter{}), 1)
}

func TestUpdateBooking_ScenarioC(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()
	res := scenarioA(t, f)

	changed := res.Booking
	changed.Services = []models.LineItem{{ServiceID: 1, Hours: hours("3")}}
	changed.Notes = "extended"
	require.NoError(t, f.bookings.UpdateBooking(ctx, changed))

	got, err := f.bookings.GetBooking(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(money("225")))
	assert.Equal(t, "extended", got.Notes)
	assert.True(t, got.CreatedAt.Equal(res.Booking.CreatedAt))

	payment, err := f.bookings.GetPayment(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(money("225")))
	assert.Equal(t, models.PaymentUnpaid, payment.Status)
	assert.True(t, payment.CreatedAt.Equal(res.Payment.CreatedAt))
}

// P3: status and timestamps of a paid payment survive repricing.
func TestUpdateBooking_KeepsPaymentStatus(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()
	res := scenarioA(t, f)

	paid, err := f.bookings.ProcessPayment(ctx, res.Payment.ID)
	require.NoError(t, err)

	changed := res.Booking
	changed.Services = []models.LineItem{{ServiceID: 1, Hours: hours("4")}}
	require.NoError(t, f.bookings.UpdateBooking(ctx, changed))

	payment, err := f.bookings.GetPayment(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(money("300")))
	assert.Equal(t, models.PaymentPaid, payment.Status)
	require.NotNil(t, payment.PaidAt)
	assert.True(t, payment.PaidAt.Equal(*paid.PaidAt))
	assert.True(t, payment.CreatedAt.Equal(res.Payment.CreatedAt))
}

func TestUpdateBooking_Errors(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()
	first := scenarioA(t, f)
	second, err := f.bookings.CreateBooking(ctx, CreateBookingInput{
		ClientID:  1,
		Date:      "2024-06-05",
		LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1")}},
	})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		missing := first.Booking
		missing.ID = 12345
		err := f.bookings.UpdateBooking(ctx, missing)
		assert.ErrorIs(t, err, ErrBookingNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("moves onto taken day", func(t *testing.T) {
		moved := second.Booking
		moved.Date = "2024-06-01"
		err := f.bookings.UpdateBooking(ctx, moved)
		assert.ErrorIs(t, err, ErrDuplicateDate)

		got, err := f.bookings.GetBooking(ctx, second.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Day("2024-06-05"), got.Date)
	})

	t.Run("keeps own day", func(t *testing.T) {
		same := first.Booking
		same.Notes = "same day edit"
		assert.NoError(t, f.bookings.UpdateBooking(ctx, same))
	})

	t.Run("unknown status", func(t *testing.T) {
		bad := first.Booking
		bad.Status = "Pending"
		assert.ErrorIs(t, f.bookings.UpdateBooking(ctx, bad), ErrValidation)
	})

	t.Run("empty status keeps stored", func(t *testing.T) {
		_, err := f.bookings.ChangeStatus(ctx, second.Booking.ID, models.StatusCompleted)
		require.NoError(t, err)
		edit := second.Booking
		edit.Status = ""
		require.NoError(t, f.bookings.UpdateBooking(ctx, edit))
		got, err := f.bookings.GetBooking(ctx, second.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})

	t.Run("status cannot be rewritten", func(t *testing.T) {
		_, err := f.bookings.ChangeStatus(ctx, first.Booking.ID, models.StatusCancelled)
		require.NoError(t, err)

		revive := first.Booking
		revive.Status = models.StatusScheduled
		assert.ErrorIs(t, f.bookings.UpdateBooking(ctx, revive), ErrInvalidTransition)

		got, err := f.bookings.GetBooking(ctx, first.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)

		revive.Status = models.StatusCancelled
		revive.Notes = "cancelled by client"
		assert.NoError(t, f.bookings.UpdateBooking(ctx, revive))
	})
}

// P4 and Scenario D.
func TestDeleteBooking_CascadesAndIsIdempotent(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()
	res := scenarioA(t, f)

	paid, err := f.bookings.ProcessPayment(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	require.NoError(t, f.bookings.DeleteBooking(ctx, res.Booking.ID))
	assert.Empty(t, f.bookings.ListBookings(ctx))
	assert.Empty(t, f.bookings.ListPayments(ctx, PaymentFilter{}))

	require.NoError(t, f.bookings.DeleteBooking(ctx, res.Booking.ID))
	_, err = f.bookings.GetBooking(ctx, res.Booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	// the freed day can be booked again
	_, err = f.bookings.CreateBooking(ctx, CreateBookingInput{ClientID: 1, Date: "2024-06-01", LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1")}}})
	assert.NoError(t, err)
}

// P5: pay once, never back to Unpaid, second pay keeps paidAt.
func TestProcessPayment(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()
	res := scenarioA(t, f)

	first, err := f.bookings.ProcessPayment(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, first.Status)
	require.NotNil(t, first.PaidAt)
	assert.False(t, first.PaidAt.IsZero())

	f.persister.reset()
	again, err := f.bookings.ProcessPayment(ctx, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, again.Status)
	assert.True(t, again.PaidAt.Equal(*first.PaidAt))
	assert.Empty(t, f.persister.keys())

	_, err = f.bookings.ProcessPayment(ctx, 777)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestChangeStatus(t *testing.T) {
	tests := []struct {
		name    string
		first   string
		second  string
		wantErr error
	}{
		{name: "complete", first: models.StatusCompleted},
		{name: "cancel", first: models.StatusCancelled},
		{name: "reschedule is not a transition", first: models.StatusScheduled, wantErr: ErrInvalidTransition},
		{name: "completed is final", first: models.StatusCompleted, second: models.StatusCancelled, wantErr: ErrInvalidTransition},
		{name: "unknown status", first: "Done", wantErr: ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(scenarioSeeds())
			ctx := context.Background()
			res := scenarioA(t, f)

			got, err := f.bookings.ChangeStatus(ctx, res.Booking.ID, tt.first)
			if tt.second != "" {
				require.NoError(t, err)
				_, err = f.bookings.ChangeStatus(ctx, res.Booking.ID, tt.second)
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.first, got.Status)
		})
	}

	f := newFixture(scenarioSeeds())
	_, err := f.bookings.ChangeStatus(context.Background(), 1, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingsOnDayAndPaymentFilter(t *testing.T) {
	seeds := scenarioSeeds()
	seeds.Clients = append(seeds.Clients, models.Client{ID: 2, Name: "Jane Smith"})
	f := newFixture(seeds)
	ctx := context.Background()

	a := scenarioA(t, f)
	b, err := f.bookings.CreateBooking(ctx, CreateBookingInput{ClientID: 2, Date: "2024-06-02", LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("1")}}})
	require.NoError(t, err)
	_, err = f.bookings.ProcessPayment(ctx, b.Payment.ID)
	require.NoError(t, err)

	onDay := f.bookings.BookingsOnDay(ctx, "2024-06-01")
	require.Len(t, onDay, 1)
	assert.Equal(t, a.Booking.ID, onDay[0].ID)
	assert.Empty(t, f.bookings.BookingsOnDay(ctx, "2024-06-03"))

	paid := f.bookings.ListPayments(ctx, PaymentFilter{Status: models.PaymentPaid})
	require.Len(t, paid, 1)
	assert.Equal(t, "Jane Smith", paid[0].ClientName)

	byName := f.bookings.ListPayments(ctx, PaymentFilter{Search: "john"})
	require.Len(t, byName, 1)
	assert.Equal(t, a.Payment.ID, byName[0].ID)

	byID := f.bookings.ListPayments(ctx, PaymentFilter{Search: "  " + formatID(b.Payment.ID)})
	require.Len(t, byID, 1)
	assert.Equal(t, b.Payment.ID, byID[0].ID)

	assert.Empty(t, f.bookings.ListPayments(ctx, PaymentFilter{Status: models.PaymentUnpaid, Search: "jane"}))
}

func TestBookingEvents(t *testing.T) {
	pub := new(mockPublisher)
	st := NewState(scenarioSeeds(), nil, nil, WithClock(tickingClock(testNow)))
	svc := NewBookingService(st, pub, nil)
	ctx := context.Background()

	pub.On("PublishJSON", events.EventBookingCreated, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.ClientName == "John Doe" && p.PaymentID != 0 && p.Date == "2024-06-01" && p.TotalAmount.Equal(money("150"))
	})).Return(nil).Once()
	pub.On("PublishJSON", events.EventBookingUpdated, mock.Anything).Return(nil).Once()
	pub.On("PublishJSON", events.EventBookingStatusChanged, mock.Anything).Return(nil).Once()
	pub.On("PublishJSON", events.EventPaymentProcessed, mock.AnythingOfType("events.PaymentEventPayload")).Return(errors.New("handler failed")).Once()
	pub.On("PublishJSON", events.EventBookingDeleted, mock.Anything).Return(nil).Once()

	res, err := svc.CreateBooking(ctx, CreateBookingInput{ClientID: 1, Date: "2024-06-01", LineItems: []models.LineItem{{ServiceID: 1, Hours: hours("2")}}})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateBooking(ctx, res.Booking))
	_, err = svc.ChangeStatus(ctx, res.Booking.ID, models.StatusCompleted)
	require.NoError(t, err)
	_, err = svc.ProcessPayment(ctx, res.Payment.ID)
	require.NoError(t, err, "publish failures are logged only")
	_, err = svc.ProcessPayment(ctx, res.Payment.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteBooking(ctx, res.Booking.ID))
	require.NoError(t, svc.DeleteBooking(ctx, res.Booking.ID))

	pub.AssertExpectations(t)
}

func TestCreatedRecordsAreIndependentCopies(t *testing.T) {
	f := newFixture(scenarioSeeds())
	ctx := context.Background()
	items := []models.LineItem{{ServiceID: 1, Hours: hours("2")}}
	res, err := f.bookings.CreateBooking(ctx, CreateBookingInput{ClientID: 1, Date: "2024-06-01", LineItems: items})
	require.NoError(t, err)

	items[0].Hours = hours("100")
	res.Booking.Services[0].Hours = hours("50")

	got, err := f.bookings.GetBooking(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.True(t, got.Services[0].Hours.Equal(hours("2")))
}
