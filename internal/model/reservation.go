package model

// Reservation is a date-range claim on a listing.  ListingTitle and
// OwnerName are filled by joined reads only.
type Reservation struct {
	ID           uint64      `json:"id" db:"reservation_id"`
	Kind         ListingKind `json:"kind" db:"-"`
	ListingID    uint64      `json:"listing_id" db:"listing_id"`
	UserID       uint64      `json:"user_id" db:"user_id"`
	Start        Date        `json:"start_date" db:"start_date"`
	End          Date        `json:"end_date" db:"end_date"`
	CreatedAt    Timestamp   `json:"created_at" db:"created_at"`
	ListingTitle string      `json:"listing_title,omitempty" db:"listing_title"`
	OwnerName    string      `json:"reserved_from,omitempty" db:"owner_name"`
}

// Range returns the reservation's inclusive day span.
func (r Reservation) Range() DateRange { return DateRange{Start: r.Start, End: r.End} }
