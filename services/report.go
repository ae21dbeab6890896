package services

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// PlatformSummary counts one platform's rows in the reconciled dataset.
type PlatformSummary struct {
	Platform string
	Total    int
	// ThisRun counts rows stamped with the run's upload date.
	ThisRun int
	// Stored is the relational row count, or -1 when unknown.
	Stored int
}

// Summarize groups the reconciled records by platform, largest first.
func Summarize(r *RunReport) []PlatformSummary {
	byPlatform := make(map[string]*PlatformSummary)
	for _, rec := range r.Records {
		name := rec.Platform.String
		s, ok := byPlatform[name]
		if !ok {
			s = &PlatformSummary{Platform: name, Stored: -1}
			byPlatform[name] = s
		}
		s.Total++
		if rec.UploadDate.Equal(r.UploadDate) {
			s.ThisRun++
		}
	}
	for name, n := range r.StoredByPlatform {
		if s, ok := byPlatform[name]; ok {
			s.Stored = n
		}
	}

	out := make([]PlatformSummary, 0, len(byPlatform))
	for _, s := range byPlatform {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// PrintReport writes a human-readable run summary to w.
func PrintReport(w io.Writer, r *RunReport) {
	fmt.Fprintf(w, "\nRun %s, upload date %s\n\n", r.RunID, r.UploadDate.Format("02.01.2006"))

	ct := table.NewWriter()
	ct.SetOutputMirror(w)
	ct.SetStyle(table.StyleLight)
	ct.AppendHeader(table.Row{"Collector", "Rows", "Status"})
	for _, c := range r.Collectors {
		status := "ok"
		if c.Err != nil {
			status = shorten(c.Err.Error(), 60)
		}
		ct.AppendRow(table.Row{c.Name, c.Rows, status})
	}
	ct.Render()

	if r.MergeErr != nil {
		fmt.Fprintf(w, "\nNothing written: %v\n\n", r.MergeErr)
		return
	}

	pt := table.NewWriter()
	pt.SetOutputMirror(w)
	pt.SetStyle(table.StyleLight)
	pt.AppendHeader(table.Row{"Platform", "Rows", "This run", "In database"})
	thisRun := 0
	for _, s := range Summarize(r) {
		thisRun += s.ThisRun
		stored := "-"
		if s.Stored >= 0 {
			stored = fmt.Sprint(s.Stored)
		}
		pt.AppendRow(table.Row{s.Platform, s.Total, s.ThisRun, stored})
	}
	pt.AppendFooter(table.Row{"Total", r.Merge.Reconciled, thisRun, ""})
	fmt.Fprintln(w)
	pt.Render()

	snapshotOK, storeOK := r.SinksWritten()
	fmt.Fprintf(w, "\nNew keys: %d | snapshot written: %t | database written: %t\n\n",
		r.Merge.NewKeys, snapshotOK, storeOK)
}

// shorten clips s to at most limit runes, marking the cut with "...".
func shorten(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
