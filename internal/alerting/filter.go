package alerting

import (
	"fmt"

	"hotelcheck/internal/passkey"

	"golang.org/x/net/html"
)

// ReferenceUnit is the unit the max distance threshold is expressed in.
const ReferenceUnit = passkey.UnitBlocks

// Available returns the listings that have bookable rooms, in their original order.
func Available(entries []passkey.Listing) []passkey.Listing {
	var out []passkey.Listing
	for _, entry := range entries {
		if entry.HasAvailability() {
			out = append(out, entry)
		}
	}
	return out
}

// RecordOf converts a listing into what the operator is shown.
func RecordOf(entry passkey.Listing) Record {
	return Record{
		Name:     html.UnescapeString(entry.Name),
		Distance: FormatDistance(entry.DistanceFromEvent, entry.DistanceUnit),
	}
}

func FormatDistance(value float64, unit passkey.DistanceUnit) string {
	return fmt.Sprintf("%.1f %s", value, unit.Label())
}

// Filter keeps the listings with availability that are close enough.
//
// Only listings in ReferenceUnit are compared against maxDistance. Listings in
// any other unit, including values the portal is not known to send, are always
// kept: the portal's unit semantics are not trusted enough to drop them. A nil
// maxDistance keeps everything with availability.
func Filter(entries []passkey.Listing, maxDistance *float64) Set {
	var records []Record
	for _, entry := range Available(entries) {
		if entry.DistanceUnit == ReferenceUnit &&
			maxDistance != nil &&
			entry.DistanceFromEvent > *maxDistance {
			continue
		}
		records = append(records, RecordOf(entry))
	}
	return NewSet(records...)
}

// HasChanged reports whether current should be alerted given the set that was
// seen on the previous cycle, previous is nil before the first cycle.
//
// An empty set is never alert-worthy, hotels disappearing is not news.
func HasChanged(current Set, previous *Set) bool {
	if current.Empty() {
		return false
	}
	if previous == nil {
		return true
	}
	return !current.Equal(*previous)
}
