package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteShortcuts prints every binding and sequence as a table.
func (a *Application) WriteShortcuts(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "CONTEXT\tKEYS\tACTION\tDESCRIPTION\tSOURCE")
	for _, s := range a.manager.GetShortcuts("") {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Context, s.Shortcut, s.Action, describe(s.Description, s.Enabled), s.Source)
	}
	for _, s := range a.manager.GetSequences("") {
		desc := describe(s.Description, s.Enabled)
		if s.Timeout > 0 {
			desc += fmt.Sprintf(" (%s)", s.Timeout.Round(time.Millisecond))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Context, s.Sequence, s.Action, desc, s.Source)
	}
	return tw.Flush()
}

func describe(desc string, enabled bool) string {
	if !enabled {
		return desc + " [disabled]"
	}
	return desc
}
