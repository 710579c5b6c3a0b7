package report

import (
	"bufio"
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteText renders the report for a terminal: aligned "name: value"
// lines, then each table indented under its name.
func (r Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	tw := tabwriter.NewWriter(bw, 0, 4, 1, ' ', 0)

	for _, f := range r.Fields {
		fmt.Fprintf(tw, "%s:\t%s\n", f.Name, f.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, t := range r.Tables {
		fmt.Fprintf(bw, "\n%s:\n", t.Name)
		if len(t.Rows) == 0 {
			fmt.Fprintln(bw, "  (none)")
			continue
		}
		tw := tabwriter.NewWriter(bw, 0, 4, 1, ' ', 0)
		for _, row := range t.Rows {
			fmt.Fprintf(tw, "  %s\t%s\n", row.Key, row.Value)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return bw.Flush()
}
