package domain

import (
	"context"
	"time"
)

type RegisterTaxRateRequest struct {
	BeginAt time.Time `json:"begin_dt"`
	EndAt   time.Time `json:"end_dt"`
	Rate    float64   `json:"rate"`
}

type ListTaxRateResponse struct {
	TaxRates []TaxRate `json:"tax_rates"`
}

type Service interface {
	// Register splices the window into the schedule and replaces the
	// stored set atomically. Serialized across instances; a concurrent
	// replacement surfaces as ErrScheduleLocked.
	Register(ctx context.Context, req RegisterTaxRateRequest) (ListTaxRateResponse, error)
	ListWindows(ctx context.Context) (ListTaxRateResponse, error)
	Current(ctx context.Context, at time.Time) (TaxRate, error)
	ActiveRate(ctx context.Context, at time.Time) (float64, error)
	// Periods returns the window set for engine input, cache-first.
	Periods(ctx context.Context) ([]TaxRate, error)
}
