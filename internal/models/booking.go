package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem references a service by id; the rate is looked up when totals
// are computed.
type LineItem struct {
	ServiceID int64           `json:"serviceId"`
	Hours     decimal.Decimal `json:"hours"`
}

type Booking struct {
	ID          int64           `json:"id"`
	ClientID    int64           `json:"clientId"`
	Date        Day             `json:"date"`
	Services    []LineItem      `json:"services"`
	Notes       string          `json:"notes"`
	Status      string          `json:"status"` // Scheduled, Completed, Cancelled
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (b Booking) RecordID() int64 { return b.ID }

// Payment is the invoice generated together with a booking.
type Payment struct {
	ID        int64           `json:"id"`
	BookingID int64           `json:"bookingId"`
	ClientID  int64           `json:"clientId"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"` // Unpaid, Paid
	CreatedAt time.Time       `json:"createdAt"`
	PaidAt    *time.Time      `json:"paidAt,omitempty"`
}

func (p Payment) RecordID() int64 { return p.ID }

func (p Payment) IsPaid() bool {
	return p.Status == PaymentPaid
}

// Clone copies the booking including its line items.
func (b Booking) Clone() Booking {
	if b.Services != nil {
		items := make([]LineItem, len(b.Services))
		copy(items, b.Services)
		b.Services = items
	}
	return b
}

func CloneBookings(in []Booking) []Booking {
	if in == nil {
		return nil
	}
	out := make([]Booking, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
