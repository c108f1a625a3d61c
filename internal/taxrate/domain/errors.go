package domain

import "errors"

var (
	ErrNoApplicableTaxRate = errors.New("no_applicable_tax_rate")
	ErrAmbiguousTaxRate    = errors.New("ambiguous_tax_rate")
	ErrTaxRateOverlap      = errors.New("tax_rate_overlap")
	ErrTaxScheduleGap      = errors.New("tax_schedule_gap")
	ErrEmptySchedule       = errors.New("empty_schedule")
	ErrInvalidWindow       = errors.New("invalid_window")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrScheduleLocked      = errors.New("schedule_locked")
)
