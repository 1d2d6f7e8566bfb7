package distance

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Format prints the lower triangle of res, one row per label, followed by
// any excluded inputs.
func Format(w io.Writer, res *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := make([]string, 0, res.Len()+1)
	header = append(header, "")
	header = append(header, res.Labels...)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")+"\t"); err != nil {
		return err
	}
	for i := 0; i < res.Len(); i++ {
		row := make([]string, 0, i+2)
		row = append(row, res.Labels[i])
		for j := 0; j <= i; j++ {
			row = append(row, fmt.Sprintf("%.3f", res.At(i, j)))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")+"\t"); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, ex := range res.Excluded {
		if _, err := fmt.Fprintf(w, "excluded %s: %v\n", ex.Label, ex.Err); err != nil {
			return err
		}
	}
	return nil
}
