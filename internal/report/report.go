// Package report prints the outcome of each search for the operator.
package report

import (
	"io"

	"hotelcheck/internal/alerting"
	"hotelcheck/internal/passkey"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table renders every hotel with availability, the ones that are close enough
// to alert on are marked with "!".
type Table struct {
	out io.Writer
}

func NewTable(out io.Writer) Table {
	return Table{out: out}
}

func (t Table) Observe(listings []passkey.Listing, alerts alerting.Set) {
	w := table.NewWriter()
	w.SetStyle(table.StyleRounded)
	w.SetOutputMirror(t.out)
	w.SetTitle("Results")
	w.AppendHeader(table.Row{"", "Distance", "Hotel"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	shown := 0
	for _, listing := range alerting.Available(listings) {
		record := alerting.RecordOf(listing)
		marker := ""
		if alerts.Contains(record) {
			marker = "!"
		}
		w.AppendRow(table.Row{marker, record.Distance, record.Name})
		shown++
	}
	if shown == 0 {
		w.AppendRow(table.Row{"", "", "no hotels with availability"})
	}

	w.Render()
}
