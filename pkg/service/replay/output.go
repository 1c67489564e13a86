package replay

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Render prints one row per instance, in chain order, plus the packets that
// left the chain through its end.
func (s *Summary) Render(w io.Writer, chain []string) error {
	table := tablewriter.NewWriter(w)
	table.Header("instance", "matches", "terminated")
	for _, name := range chain {
		if err := table.Append([]string{
			name,
			strconv.FormatUint(s.Matches[name], 10),
			strconv.FormatUint(s.TerminatedBy[name], 10),
		}); err != nil {
			return err
		}
	}
	if err := table.Append([]string{"(end of chain)", "-", strconv.FormatUint(s.FellThrough, 10)}); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d packets replayed\n", s.Packets)
	return err
}
