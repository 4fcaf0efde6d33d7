package repository

import (
	"fmt"

	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// listingTables names the tables and key column backing one listing kind.
// Table names are never taken from user input; they come from this switch.
type listingTables struct {
	listing      string // resources | spaces
	id           string // resource_id | space_id
	reservations string
	reviews      string
}

func tablesFor(kind model.ListingKind) (listingTables, error) {
	switch kind {
	case model.KindResource:
		return listingTables{"resources", "resource_id", "resource_reservations", "resource_reviews"}, nil
	case model.KindSpace:
		return listingTables{"spaces", "space_id", "space_reservations", "space_reviews"}, nil
	}
	return listingTables{}, fmt.Errorf("unknown listing kind %q", kind)
}

// BrowseQuery filters and pages list endpoints.  An empty Text matches all
// rows; Page is 1-based.
type BrowseQuery struct {
	Text     string
	Page     int
	PageSize int
}

func (q BrowseQuery) limits() (limit, offset int) {
	limit = q.PageSize
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func likePattern(s string) string {
	return "%" + s + "%"
}
