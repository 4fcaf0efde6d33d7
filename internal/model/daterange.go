package model

// DateRange is an inclusive span of calendar days [Start, End].
type DateRange struct {
	Start Date `json:"start_date" db:"start_date"`
	End   Date `json:"end_date" db:"end_date"`
}

// ParseDateRange parses both bounds.  It does not check ordering; use Valid.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: s, End: e}, nil
}

// Valid reports whether End is not before Start.  A single-day range is valid.
func (r DateRange) Valid() bool {
	return !r.End.Before(r.Start)
}

// Overlaps reports whether r and o share at least one calendar day.  Both
// ends are inclusive, so a range starting on the day another one ends
// overlaps it: r.Start <= o.End && r.End >= o.Start.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !r.End.Before(o.Start)
}

// Contains reports whether d lies within r, bounds included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// FirstOverlap returns the first range in existing that overlaps r.  The
// scan stops at the first hit; order does not affect the outcome.
func (r DateRange) FirstOverlap(existing []DateRange) (DateRange, bool) {
	for _, e := range existing {
		if r.Overlaps(e) {
			return e, true
		}
	}
	return DateRange{}, false
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}
