package report

import (
	"encoding/json"
	"strings"
	"testing"

	"hotelcheck/internal/alerting"
	"hotelcheck/internal/passkey"

	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	listings := []passkey.Listing{
		{Name: "Westin &amp; Spa", DistanceFromEvent: 1, DistanceUnit: passkey.UnitBlocks, Blocks: []json.RawMessage{[]byte(`{}`)}},
		{Name: "Far Inn", DistanceFromEvent: 12.5, DistanceUnit: passkey.UnitBlocks, Blocks: []json.RawMessage{[]byte(`{}`)}},
		{Name: "Sold Out Suites", DistanceFromEvent: 0.5, DistanceUnit: passkey.UnitBlocks},
	}
	maxDistance := 2.0
	alerts := alerting.Filter(listings, &maxDistance)

	var out strings.Builder
	NewTable(&out).Observe(listings, alerts)
	rendered := out.String()

	require.Contains(t, rendered, "Results")
	require.NotContains(t, rendered, "Sold Out Suites")

	var westin, far string
	for _, line := range strings.Split(rendered, "\n") {
		switch {
		case strings.Contains(line, "Westin & Spa"):
			westin = line
		case strings.Contains(line, "Far Inn"):
			far = line
		}
	}
	require.Contains(t, westin, "!")
	require.Contains(t, westin, "1.0 blocks")
	require.NotContains(t, far, "!")
	require.Contains(t, far, "12.5 blocks")
}

func TestTableEmpty(t *testing.T) {
	var out strings.Builder
	NewTable(&out).Observe(nil, alerting.NewSet())
	require.Contains(t, out.String(), "no hotels with availability")
}
