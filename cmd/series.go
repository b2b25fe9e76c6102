package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/episim/episim/sim"
)

// printSeries writes one row per SEIR sample with its simulated timestamp.
func printSeries(out io.Writer, w *sim.World, series []sim.Tally) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "=== SEIR Series ===")
	fmt.Fprintln(tw, "tick\ttime\tS\tE\tI\tR")
	for _, t := range series {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\n",
			t.Tick, w.Timestamp(t.Tick).Format("2006-01-02 15:04"),
			t.Susceptible, t.Exposed, t.Infectious, t.Removed)
	}
	tw.Flush()
}
