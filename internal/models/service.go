package models

import "github.com/shopspring/decimal"

// Service is a catalog entry billed per hour.
type Service struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`
}

func (s Service) RecordID() int64 { return s.ID }
