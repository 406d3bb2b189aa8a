package store

import (
	"fmt"
	"io"
	"sort"

	"github.com/huangsam/apprank/schema"
)

// PrintStoreStatus prints store status information.
func PrintStoreStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	if status.LatestStatDate.IsZero() {
		_, _ = fmt.Fprintln(w, "Latest Statistics: none")
	} else {
		_, _ = fmt.Fprintf(w, "Latest Statistics: %s (%d entities)\n", schema.FormatDate(status.LatestStatDate), status.LatestStatCount)
	}
	if run := status.LastRun; run != nil {
		_, _ = fmt.Fprintf(w, "Last Run: %s (%s) for %s, %d entities\n",
			run.RunID, run.Status, schema.FormatDate(run.RunDate), run.EntityCount)
		_, _ = fmt.Fprintf(w, "Last Run Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.Error != "" {
			_, _ = fmt.Fprintf(w, "Last Run Error: %s\n", run.Error)
		}
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
