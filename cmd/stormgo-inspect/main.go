// Command stormgo-inspect prints the Storm-Go class registry as a table,
// grounded on the teacher's Connection.PrintSchematic: load the classes
// an application has registered via schema.Register, then render their
// columns/primary-key/auto flags for a human to eyeball before pointing
// the Store at a real database.
package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/table"

	_ "github.com/rezakhademix/stormgo/examples/models"
	"github.com/rezakhademix/stormgo/schema"
)

func main() {
	classes := schema.All()
	if len(classes) == 0 {
		fmt.Fprintln(os.Stderr, "stormgo-inspect: no classes registered — import the package(s) that call schema.Register before running this")
		os.Exit(1)
	}

	for _, ci := range classes {
		fmt.Printf("%s  (table %q)\n", ci.Type, ci.Table)

		w := table.NewWriter()
		w.AppendHeader(table.Row{"Column", "Go Field", "Primary Key", "Auto"})
		for _, col := range ci.ColumnDescriptors() {
			w.AppendRow(table.Row{col.Column, col.GoField, col.IsPrimary, col.IsAuto})
		}
		fmt.Println(w.Render())
		fmt.Println()
	}
}
