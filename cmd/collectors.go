package cmd

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"listings-aggregator/collectors"
	"listings-aggregator/utils"
)

var collectorsCmd = &cobra.Command{
	Use:   "collectors",
	Short: "List registered collectors and whether the config runs them",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		printCollectors(os.Stdout, a.registry, a.sources.Parsers)
		return nil
	},
}

// printCollectors lists every registered collector plus configured names
// with no registered implementation.
func printCollectors(w io.Writer, reg *collectors.Registry, configured []string) {
	order := make(map[string]int, len(configured))
	for i, name := range configured {
		if _, ok := order[name]; !ok {
			order[name] = i + 1
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Collector", "Run order", "Status"})

	registered := utils.NewSet[string]()
	for _, name := range reg.Names() {
		registered.Add(name)
		if pos, ok := order[name]; ok {
			t.AppendRow(table.Row{name, pos, "enabled"})
		} else {
			t.AppendRow(table.Row{name, "-", "disabled"})
		}
	}
	for _, name := range configured {
		if !registered.Contains(name) {
			t.AppendRow(table.Row{name, order[name], "unknown"})
		}
	}
	t.Render()
}
