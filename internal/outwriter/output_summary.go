package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintSummary outputs a summary to stdout or the configured file.
func PrintSummary(summary schema.Summary, date time.Time, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteSummary(w, summary, date, cfg)
	}, "Wrote summary")
}

// WriteSummary writes a summary, dispatching based on the output format configured.
func WriteSummary(w io.Writer, summary schema.Summary, date time.Time, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, summary); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVSummary(w, summary); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeSummaryTables(w, summary, date, cfg); err != nil {
			return fmt.Errorf("error writing summary table output: %w", err)
		}
	}
	return nil
}

// writeCSVSummary writes gainers and overall leaders into one CSV with a section column.
func writeCSVSummary(w io.Writer, summary schema.Summary) error {
	header := []string{"section", "position", "name", "username", "rank", "change", "domain"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, g := range summary.TopGainers {
			row := []string{"top_gainers", strconv.Itoa(i + 1), g.Name, g.Username, strconv.Itoa(g.Rank), strconv.Itoa(g.Change), g.Domain}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		for i, o := range summary.TopOverall {
			row := []string{"top_overall", strconv.Itoa(i + 1), o.Name, o.Username, strconv.Itoa(o.Rank), "", o.Domain}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeSummaryTables prints the gainers and the overall leaders as two tables.
func writeSummaryTables(w io.Writer, summary schema.Summary, date time.Time, cfg *contract.Config) error {
	nameWidth := GetMaxTableNameWidth(cfg)
	_, _ = fmt.Fprintf(w, "Ranking for %s: %d entities\n\n", schema.FormatDate(date), summary.EntityCount)

	_, _ = fmt.Fprintln(w, "Top gainers (24h)")
	if len(summary.TopGainers) == 0 {
		_, _ = fmt.Fprintln(w, "  No gainers today.")
	} else {
		data := make([][]string, 0, len(summary.TopGainers))
		for i, g := range summary.TopGainers {
			data = append(data, []string{
				strconv.Itoa(i + 1),
				contract.TruncateText(g.Name, nameWidth),
				"@" + g.Username,
				strconv.Itoa(g.Rank),
				formatDelta(schema.KnownDelta(g.Change), cfg.UseColors),
			})
		}
		if err := renderTable(w, []string{"#", "Name", "Author", "Rank", "Change"}, data); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintln(w, "\nTop overall")
	if len(summary.TopOverall) == 0 {
		_, _ = fmt.Fprintln(w, "  No entities ranked.")
		return nil
	}
	data := make([][]string, 0, len(summary.TopOverall))
	for i, o := range summary.TopOverall {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncateText(o.Name, nameWidth),
			"@" + o.Username,
			strconv.Itoa(o.Rank),
			o.Domain,
		})
	}
	return renderTable(w, []string{"#", "Name", "Author", "Rank", "Domain"}, data)
}

// renderTable writes right-aligned rows under headers.
func renderTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
