// Package alerting decides which hotels are worth telling the operator about
// and whether that list is different from what they were last told.
package alerting

import (
	"slices"
	"strings"
)

// Record is one hotel as shown to the operator.
type Record struct {
	Name     string
	Distance string
}

func compareRecords(a, b Record) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.Distance, b.Distance)
}

// Set is an unordered collection of records. The zero value is an empty set.
//
// Records are kept sorted and deduplicated so two sets holding the same records
// compare equal regardless of the order they were built in.
type Set struct {
	records []Record
}

func NewSet(records ...Record) Set {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, compareRecords)
	sorted = slices.Compact(sorted)
	return Set{records: sorted}
}

func (s Set) Len() int {
	return len(s.records)
}

func (s Set) Empty() bool {
	return len(s.records) == 0
}

// Records returns the records sorted by name.
func (s Set) Records() []Record {
	return slices.Clone(s.records)
}

// Names returns the hotel names in record order.
func (s Set) Names() []string {
	names := make([]string, len(s.records))
	for i, r := range s.records {
		names[i] = r.Name
	}
	return names
}

func (s Set) Equal(other Set) bool {
	return slices.Equal(s.records, other.records)
}

func (s Set) Contains(r Record) bool {
	_, found := slices.BinarySearchFunc(s.records, r, compareRecords)
	return found
}
