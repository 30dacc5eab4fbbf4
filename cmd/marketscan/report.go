package main

import (
	"fmt"
	"io"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/olekukonko/tablewriter"

	"github.com/rewired-gh/pendlewatch/internal/models"
)

// ScanRow is one line of the report
type ScanRow struct {
	ID   string
	Name string
	New  bool
}

// ScanReport compares one fetch against the known set without changing it
type ScanReport struct {
	ChainID int
	Known   int
	Rows    []ScanRow
}

// NewCount returns how many rows would be announced
func (r ScanReport) NewCount() int {
	n := 0
	for _, row := range r.Rows {
		if row.New {
			n++
		}
	}
	return n
}

// buildReport lists fetched markets, new ones first, each group sorted by name.
// Duplicate IDs in the fetch are listed once.
func buildReport(chainID int, markets []models.Market, known mapset.Set[string]) ScanReport {
	report := ScanReport{ChainID: chainID, Known: known.Cardinality()}

	seen := make(map[string]bool)
	for _, m := range markets {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		report.Rows = append(report.Rows, ScanRow{ID: m.ID, Name: m.Name, New: !known.Contains(m.ID)})
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if a.New != b.New {
			return a.New
		}
		return a.Name < b.Name
	})
	return report
}

// printReport renders the report as a table followed by a summary line
func printReport(w io.Writer, report ScanReport, newOnly bool) {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Status", "Name", "ID")

	i := 0
	for _, row := range report.Rows {
		if newOnly && !row.New {
			continue
		}
		i++
		status := "known"
		if row.New {
			status = "NEW"
		}
		table.Append(fmt.Sprintf("%d", i), status, row.Name, row.ID)
	}
	table.Render()

	fmt.Fprintf(w, "\nChain %d: %d active, %d new, %d already known in state\n",
		report.ChainID, len(report.Rows), report.NewCount(), report.Known)
}
