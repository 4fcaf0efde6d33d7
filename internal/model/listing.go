package model

import (
	"fmt"
	"strings"
)

// ListingKind distinguishes the two bookable listing tables.  Resources and
// spaces share one shape and one reservation rule.
type ListingKind string

const (
	KindResource ListingKind = "resource"
	KindSpace    ListingKind = "space"
)

// ParseListingKind accepts singular or plural names ("spaces").
func ParseListingKind(s string) (ListingKind, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case string(KindResource):
		return KindResource, nil
	case string(KindSpace):
		return KindSpace, nil
	}
	return "", fmt.Errorf("unknown listing kind %q", s)
}

// Plural is the route segment for the kind.
func (k ListingKind) Plural() string { return string(k) + "s" }

// Stored availability flag values.  The flag is free text chosen by the
// owner; these are the values the service itself writes or derives.
const (
	AvailabilityAvailable = "available"
	StatusReserved        = "Reserved"
)

// Listing is a resource or space row.  Availability is the owner's stored
// flag; Status is the derived display value for "today".  List queries
// compute ReservedToday in SQL and call ResolveStatus.
type Listing struct {
	ID            uint64      `json:"id" db:"id"`
	Kind          ListingKind `json:"kind" db:"-"`
	OwnerID       uint64      `json:"owner_id" db:"user_id"`
	OwnerName     string      `json:"owner_name,omitempty" db:"owner_name"`
	Title         string      `json:"title" db:"title"`
	Description   string      `json:"description" db:"description"`
	Image         string      `json:"image,omitempty" db:"images"`
	Category      string      `json:"category" db:"category"`
	Availability  string      `json:"availability" db:"availability"`
	Status        string      `json:"status" db:"-"`
	DatePosted    Timestamp   `json:"date_posted" db:"date_posted"`

	ReservedToday bool `json:"-" db:"reserved_today"`
}

// ResolveStatus sets Status from ReservedToday and the stored flag.
func (l *Listing) ResolveStatus() {
	if l.ReservedToday {
		l.Status = StatusReserved
		return
	}
	l.Status = l.Availability
}

// EffectiveAvailability is the derived status of a listing on day: Reserved
// when any of its reservations covers day, otherwise the stored flag.
func EffectiveAvailability(stored string, reservations []DateRange, day Date) string {
	for _, r := range reservations {
		if r.Contains(day) {
			return StatusReserved
		}
	}
	return stored
}
