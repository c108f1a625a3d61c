package domain

import "sort"

// Schedule is the full normalized set of tax windows: sorted by begin,
// gap-free, overlap-free, with the outermost bounds snapped to the
// sentinels. Replacing the stored windows always goes through a
// Schedule so a broken set can never be persisted.
type Schedule struct {
	windows []TaxRate
}

// NewSchedule normalizes raw windows. Windows are sorted by begin and
// each pair of neighbours must touch exactly: a hole between them is
// ErrTaxScheduleGap, an overlap is ErrTaxRateOverlap.
func NewSchedule(windows []TaxRate) (Schedule, error) {
	if len(windows) == 0 {
		return Schedule{}, ErrEmptySchedule
	}

	sorted := make([]TaxRate, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].BeginAt.Before(sorted[j].BeginAt)
	})

	for i := range sorted {
		if err := sorted[i].Validate(); err != nil {
			return Schedule{}, err
		}
	}
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if next.BeginAt.After(prev.EndAt) {
			return Schedule{}, ErrTaxScheduleGap
		}
		if next.BeginAt.Before(prev.EndAt) {
			return Schedule{}, ErrTaxRateOverlap
		}
	}

	sorted[0].BeginAt = MinBegin
	sorted[len(sorted)-1].EndAt = MaxEnd
	return Schedule{windows: sorted}, nil
}

// Windows returns the normalized window list in begin order.
func (s Schedule) Windows() []TaxRate {
	out := make([]TaxRate, len(s.windows))
	copy(out, s.windows)
	return out
}

// Splice cuts window into the schedule: a neighbour overlapping its
// begin keeps only the part before it, a neighbour overlapping its end
// keeps only the part after it, a window covering it entirely is split
// in two around it, and windows it covers entirely are dropped. Split
// halves come back with a zero ID; the caller assigns fresh IDs before
// persisting. Splicing into an empty schedule makes window span all of
// time.
func (s Schedule) Splice(window TaxRate) (Schedule, error) {
	if err := window.Validate(); err != nil {
		return Schedule{}, err
	}
	if len(s.windows) == 0 {
		return NewSchedule([]TaxRate{window})
	}

	out := make([]TaxRate, 0, len(s.windows)+2)
	for _, existing := range s.windows {
		switch {
		case !existing.EndAt.After(window.BeginAt):
			// entirely before
			out = append(out, existing)
		case !existing.BeginAt.Before(window.EndAt):
			// entirely after
			out = append(out, existing)
		case existing.BeginAt.Before(window.BeginAt) && existing.EndAt.After(window.EndAt):
			// covers the new window: split around it
			left := existing
			left.EndAt = window.BeginAt
			right := existing
			right.ID = 0
			right.BeginAt = window.EndAt
			out = append(out, left, right)
		case existing.BeginAt.Before(window.BeginAt):
			// overlaps the new begin: truncate its end
			trunc := existing
			trunc.EndAt = window.BeginAt
			out = append(out, trunc)
		case existing.EndAt.After(window.EndAt):
			// overlaps the new end: truncate its begin
			trunc := existing
			trunc.BeginAt = window.EndAt
			out = append(out, trunc)
		default:
			// fully covered: dropped
		}
	}
	out = append(out, window)

	return NewSchedule(out)
}
