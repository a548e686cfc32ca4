package alerting

import (
	"encoding/json"
	"testing"

	"hotelcheck/internal/passkey"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func listing(name string, distance float64, unit passkey.DistanceUnit, available bool) passkey.Listing {
	l := passkey.Listing{
		Name:              name,
		DistanceFromEvent: distance,
		DistanceUnit:      unit,
	}
	if available {
		l.Blocks = []json.RawMessage{json.RawMessage(`{"id":1}`)}
	}
	return l
}

func threshold(v float64) *float64 {
	return &v
}

func TestFilter(t *testing.T) {
	table := []struct {
		name        string
		entries     []passkey.Listing
		maxDistance *float64
		expected    []Record
	}{
		{
			name:        "no availability is always dropped",
			entries:     []passkey.Listing{listing("Hotel A", 0.1, passkey.UnitBlocks, false)},
			maxDistance: threshold(4),
		},
		{
			name:    "no availability without threshold",
			entries: []passkey.Listing{listing("Hotel A", 0.1, passkey.UnitMiles, false)},
		},
		{
			name:        "reference unit over threshold",
			entries:     []passkey.Listing{listing("Hotel A", 5, passkey.UnitBlocks, true)},
			maxDistance: threshold(4),
		},
		{
			name:        "reference unit under threshold",
			entries:     []passkey.Listing{listing("Hotel A", 3, passkey.UnitBlocks, true)},
			maxDistance: threshold(4),
			expected:    []Record{{Name: "Hotel A", Distance: "3.0 blocks"}},
		},
		{
			name:        "reference unit at threshold",
			entries:     []passkey.Listing{listing("Hotel A", 4, passkey.UnitBlocks, true)},
			maxDistance: threshold(4),
			expected:    []Record{{Name: "Hotel A", Distance: "4.0 blocks"}},
		},
		{
			name:     "no threshold keeps everything available",
			entries:  []passkey.Listing{listing("Hotel A", 50, passkey.UnitBlocks, true)},
			expected: []Record{{Name: "Hotel A", Distance: "50.0 blocks"}},
		},
		{
			name:        "other units ignore the threshold",
			entries:     []passkey.Listing{listing("Hotel A", 100, passkey.UnitMiles, true)},
			maxDistance: threshold(0.1),
			expected:    []Record{{Name: "Hotel A", Distance: "100.0 miles"}},
		},
		{
			name:        "unknown units ignore the threshold",
			entries:     []passkey.Listing{listing("Hotel A", 7, passkey.DistanceUnit(9), true)},
			maxDistance: threshold(0.1),
			expected:    []Record{{Name: "Hotel A", Distance: "7.0 ???"}},
		},
		{
			name:     "names are unescaped",
			entries:  []passkey.Listing{listing("Embassy Suites &amp; Spa &#39;Downtown&#39;", 2.3, passkey.UnitBlocks, true)},
			expected: []Record{{Name: "Embassy Suites & Spa 'Downtown'", Distance: "2.3 blocks"}},
		},
		{
			name: "mixed",
			entries: []passkey.Listing{
				listing("Westin", 1, passkey.UnitBlocks, true),
				listing("Marriott", 3, passkey.UnitBlocks, true),
				listing("Crowne Plaza", 0.5, passkey.UnitBlocks, false),
				listing("Airport Inn", 8.4, passkey.UnitMiles, true),
			},
			maxDistance: threshold(2),
			expected: []Record{
				{Name: "Airport Inn", Distance: "8.4 miles"},
				{Name: "Westin", Distance: "1.0 blocks"},
			},
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			result := Filter(row.entries, row.maxDistance)
			if diff := cmp.Diff(row.expected, result.Records()); diff != "" {
				t.Fatalf("unexpected records (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterIsDeterministic(t *testing.T) {
	entries := []passkey.Listing{
		listing("B", 1, passkey.UnitBlocks, true),
		listing("A", 1, passkey.UnitBlocks, true),
		listing("B", 1, passkey.UnitBlocks, true),
	}
	reversed := []passkey.Listing{entries[2], entries[1], entries[0]}

	first := Filter(entries, threshold(2))
	second := Filter(reversed, threshold(2))
	require.True(t, first.Equal(second))
	require.Equal(t, 2, first.Len())
}

func TestSetEquality(t *testing.T) {
	a := Record{Name: "Hotel A", Distance: "1.0 blocks"}
	b := Record{Name: "Hotel B", Distance: "2.0 blocks"}
	c := Record{Name: "Hotel A", Distance: "3.0 blocks"}

	require.True(t, NewSet(a, b).Equal(NewSet(b, a)))
	require.True(t, NewSet(a, a, b).Equal(NewSet(b, a)))
	require.False(t, NewSet(a, b).Equal(NewSet(a)))
	require.False(t, NewSet(a).Equal(NewSet(c)))
	require.True(t, Set{}.Equal(NewSet()))
	require.Equal(t, []string{"Hotel A", "Hotel B"}, NewSet(b, a).Names())
	require.True(t, NewSet(a, b).Contains(b))
	require.False(t, NewSet(a, b).Contains(c))
}

func TestHasChanged(t *testing.T) {
	a := Record{Name: "Hotel A", Distance: "1.0 blocks"}
	b := Record{Name: "Hotel B", Distance: "2.0 blocks"}

	nonEmpty := NewSet(a, b)
	permuted := NewSet(b, a)
	empty := NewSet()

	table := []struct {
		name     string
		current  Set
		previous *Set
		expected bool
	}{
		{name: "same set permuted", current: nonEmpty, previous: &permuted, expected: false},
		{name: "first appearance", current: nonEmpty, previous: nil, expected: true},
		{name: "empty without previous", current: empty, previous: nil, expected: false},
		{name: "empty after non-empty", current: empty, previous: &nonEmpty, expected: false},
		{name: "empty after empty", current: empty, previous: &empty, expected: false},
		{name: "reappearance after empty", current: nonEmpty, previous: &empty, expected: true},
		{name: "hotel added", current: nonEmpty, previous: ptr(NewSet(a)), expected: true},
		{name: "hotel removed", current: NewSet(a), previous: &nonEmpty, expected: true},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			require.Equal(t, row.expected, HasChanged(row.current, row.previous))
		})
	}
}

func ptr(s Set) *Set {
	return &s
}
