package service

import (
	"context"
	"sort"
	"time"

	"buildops/internal/models"

	"github.com/shopspring/decimal"
)

const recentUnpaidLimit = 5

// StatementFilter narrows a billing statement. ClientID 0 means every
// client; the date range applies only when both bounds are set.
type StatementFilter struct {
	ClientID  int64
	StartDate models.Day
	EndDate   models.Day
}

type StatementRow struct {
	PaymentView
	BookingDate  models.Day `json:"bookingDate,omitempty"`
	ServiceCount int        `json:"serviceCount"`
}

type StatementTotals struct {
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
	Paid   decimal.Decimal `json:"paid"`
	Unpaid decimal.Decimal `json:"unpaid"`
}

type Statement struct {
	Filter      StatementFilter `json:"-"`
	ClientName  string          `json:"clientName,omitempty"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Rows        []StatementRow  `json:"rows"`
	Totals      StatementTotals `json:"totals"`
}

type Dashboard struct {
	Today            models.Day       `json:"today"`
	TotalClients     int              `json:"totalClients"`
	NewClients       int              `json:"newClients"`
	UpcomingBookings int              `json:"upcomingBookings"`
	InventoryUnits   int64            `json:"inventoryUnits"`
	UnpaidInvoices   int              `json:"unpaidInvoices"`
	Revenue          decimal.Decimal  `json:"revenue"`
	Pending          decimal.Decimal  `json:"pending"`
	ThisWeek         []models.Booking `json:"thisWeek"`
	RecentUnpaid     []PaymentView    `json:"recentUnpaid"`
}

type InvoiceLine struct {
	ServiceID   int64           `json:"serviceId"`
	ServiceName string          `json:"serviceName"`
	HourlyRate  decimal.Decimal `json:"hourlyRate"`
	Hours       decimal.Decimal `json:"hours"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Invoice struct {
	Payment PaymentView     `json:"payment"`
	Client  *models.Client  `json:"client,omitempty"`
	Booking *models.Booking `json:"booking,omitempty"`
	Lines   []InvoiceLine   `json:"lines"`
	Total   decimal.Decimal `json:"total"`
}

// ReportService builds read-only views over the state.
type ReportService struct {
	state *State
}

func NewReportService(state *State) *ReportService {
	return &ReportService{state: state}
}

func (s *ReportService) BillingStatement(ctx context.Context, filter StatementFilter) (Statement, error) {
	var from, to time.Time
	ranged := filter.StartDate != "" && filter.EndDate != ""
	if ranged {
		var err error
		if from, err = filter.StartDate.Start(s.state.loc); err != nil {
			return Statement{}, invalid("startDate", "expected YYYY-MM-DD")
		}
		if to, err = filter.EndDate.End(s.state.loc); err != nil {
			return Statement{}, invalid("endDate", "expected YYYY-MM-DD")
		}
		if to.Before(from) {
			return Statement{}, invalid("endDate", "is before startDate")
		}
	}

	st := Statement{
		Filter:      filter,
		GeneratedAt: s.state.now(),
		Rows:        []StatementRow{},
		Totals:      StatementTotals{Total: decimal.Zero, Paid: decimal.Zero, Unpaid: decimal.Zero},
	}
	s.state.read(func() {
		if filter.ClientID != 0 {
			st.ClientName = s.state.clientName(filter.ClientID)
		}
		for _, payment := range s.state.payments.All() {
			if filter.ClientID != 0 && payment.ClientID != filter.ClientID {
				continue
			}
			if ranged && (payment.CreatedAt.Before(from) || payment.CreatedAt.After(to)) {
				continue
			}

			row := StatementRow{PaymentView: PaymentView{
				Payment:    payment,
				ClientName: s.state.clientName(payment.ClientID),
			}}
			if booking, ok := s.state.bookings.Find(payment.BookingID); ok {
				row.BookingDate = booking.Date
				row.ServiceCount = len(booking.Services)
			}
			st.Rows = append(st.Rows, row)

			st.Totals.Count++
			st.Totals.Total = st.Totals.Total.Add(payment.Amount)
			switch payment.Status {
			case models.PaymentPaid:
				st.Totals.Paid = st.Totals.Paid.Add(payment.Amount)
			case models.PaymentUnpaid:
				st.Totals.Unpaid = st.Totals.Unpaid.Add(payment.Amount)
			}
		}
	})
	return st, nil
}

// Dashboard summarises the state as of now.
func (s *ReportService) Dashboard(ctx context.Context, now time.Time) Dashboard {
	now = now.In(s.state.loc)
	today := models.DayOf(now)
	weekEnd := today.AddDays(models.UpcomingWindowDays)
	lastMonth := now.AddDate(0, -1, 0)

	d := Dashboard{
		Today:        today,
		Revenue:      decimal.Zero,
		Pending:      decimal.Zero,
		ThisWeek:     []models.Booking{},
		RecentUnpaid: []PaymentView{},
	}
	s.state.read(func() {
		d.TotalClients = s.state.clients.Len()
		for _, c := range s.state.clients.All() {
			if !c.CreatedAt.IsZero() && c.CreatedAt.After(lastMonth) {
				d.NewClients++
			}
		}

		for _, b := range s.state.bookings.All() {
			if _, err := models.ParseDay(b.Date.String()); err != nil {
				continue
			}
			// YYYY-MM-DD compares correctly as a string
			if b.Date >= today && b.Status == models.StatusScheduled {
				d.UpcomingBookings++
			}
			if b.Date >= today && b.Date <= weekEnd {
				d.ThisWeek = append(d.ThisWeek, b.Clone())
			}
		}
		sort.SliceStable(d.ThisWeek, func(i, j int) bool { return d.ThisWeek[i].Date < d.ThisWeek[j].Date })

		for _, item := range s.state.inventory.All() {
			d.InventoryUnits += item.Quantity
		}

		for _, p := range s.state.payments.All() {
			switch p.Status {
			case models.PaymentPaid:
				d.Revenue = d.Revenue.Add(p.Amount)
			case models.PaymentUnpaid:
				d.Pending = d.Pending.Add(p.Amount)
				d.UnpaidInvoices++
				if len(d.RecentUnpaid) < recentUnpaidLimit {
					d.RecentUnpaid = append(d.RecentUnpaid, PaymentView{Payment: p, ClientName: s.state.clientName(p.ClientID)})
				}
			}
		}
	})
	return d
}

// Invoice prices the booking behind a payment at current catalog rates.
func (s *ReportService) Invoice(ctx context.Context, paymentID int64) (Invoice, error) {
	var (
		inv   Invoice
		found bool
	)
	s.state.read(func() {
		payment, ok := s.state.payments.Find(paymentID)
		if !ok {
			return
		}
		found = true
		inv.Payment = PaymentView{Payment: payment, ClientName: s.state.clientName(payment.ClientID)}
		inv.Lines = []InvoiceLine{}
		inv.Total = decimal.Zero

		if client, ok := s.state.clients.Find(payment.ClientID); ok {
			inv.Client = &client
		}
		booking, ok := s.state.bookings.Find(payment.BookingID)
		if !ok {
			return
		}
		booking = booking.Clone()
		inv.Booking = &booking
		for _, item := range booking.Services {
			line := InvoiceLine{
				ServiceID:   item.ServiceID,
				ServiceName: models.UnknownService,
				HourlyRate:  decimal.Zero,
				Hours:       item.Hours,
			}
			if svc, ok := s.state.services.Find(item.ServiceID); ok {
				line.ServiceName = svc.Name
				line.HourlyRate = svc.HourlyRate
			}
			line.Subtotal = line.HourlyRate.Mul(line.Hours)
			inv.Lines = append(inv.Lines, line)
			inv.Total = inv.Total.Add(line.Subtotal)
		}
	})
	if !found {
		return Invoice{}, ErrPaymentNotFound
	}
	return inv, nil
}
