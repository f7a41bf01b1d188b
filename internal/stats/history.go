// Package stats derives the history, statistics and search views from the
// synchronised collections. Every function is pure and works on copies.
package stats

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/usagereg/usagereg/internal/catalog"
)

// All disables a user or location filter.
const All = "all"

// SortField selects the history ordering key.
type SortField string

const (
	SortDate     SortField = "date"
	SortUser     SortField = "user"
	SortProduct  SortField = "product"
	SortLocation SortField = "location"
)

// SortOrder is newest (descending) or oldest (ascending).
type SortOrder string

const (
	Newest SortOrder = "newest"
	Oldest SortOrder = "oldest"
)

// HistoryFilter narrows the registration history. Zero values match all.
type HistoryFilter struct {
	Search   string    `json:"search"`
	User     string    `json:"user"`
	Location string    `json:"location"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	SortBy   SortField `json:"sortBy"`
	Order    SortOrder `json:"order"`
}

// newCollator compares like a Dutch base-sensitivity locale compare: case and
// accents are ignored. Collators keep internal buffers, so each call gets one.
func newCollator() *collate.Collator {
	return collate.New(language.Dutch, collate.IgnoreCase, collate.IgnoreDiacritics)
}

func containsFold(s, lowered string) bool {
	return strings.Contains(strings.ToLower(s), lowered)
}

func (f HistoryFilter) match(r catalog.Registration) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !containsFold(r.User, q) && !containsFold(r.Product, q) && !containsFold(r.Location, q) &&
			!containsFold(r.Purpose, q) && !containsFold(r.QRCode, q) {
			return false
		}
	}
	if f.User != "" && f.User != All && r.User != f.User {
		return false
	}
	if f.Location != "" && f.Location != All && r.Location != f.Location {
		return false
	}
	day := r.Day()
	if f.From != "" && day < f.From {
		return false
	}
	if f.To != "" && day > f.To {
		return false
	}
	return true
}

// History filters and sorts registrations. Equal keys keep their input order.
func History(regs []catalog.Registration, f HistoryFilter) []catalog.Registration {
	out := make([]catalog.Registration, 0, len(regs))
	for _, r := range regs {
		if f.match(r) {
			out = append(out, r)
		}
	}

	col := newCollator()
	cmp := func(a, b catalog.Registration) int {
		switch f.SortBy {
		case SortUser:
			return col.CompareString(a.User, b.User)
		case SortProduct:
			return col.CompareString(a.Product, b.Product)
		case SortLocation:
			return col.CompareString(a.Location, b.Location)
		default:
			return a.Timestamp.Compare(b.Timestamp)
		}
	}
	slices.SortStableFunc(out, func(a, b catalog.Registration) int {
		if f.Order == Oldest {
			return cmp(a, b)
		}
		return -cmp(a, b)
	})
	return out
}
