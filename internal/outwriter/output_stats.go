package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// PrintStatistics outputs statistics rows to stdout or the configured file.
func PrintStatistics(rows []schema.StatisticsRow, date time.Time, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteStatistics(w, rows, date, cfg)
	}, "Wrote statistics")
}

// WriteStatistics writes at most cfg.ResultLimit rows, dispatching based on the output format configured.
func WriteStatistics(w io.Writer, rows []schema.StatisticsRow, date time.Time, cfg *contract.Config) error {
	if cfg.ResultLimit > 0 && len(rows) > cfg.ResultLimit {
		rows = rows[:cfg.ResultLimit]
	}
	fmtFloat := createFloatFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if rows == nil {
			rows = []schema.StatisticsRow{}
		}
		if err := writeJSON(w, rows); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVStatistics(w, rows, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeStatisticsTable(w, rows, date, cfg, fmtFloat); err != nil {
			return fmt.Errorf("error writing statistics table output: %w", err)
		}
	}
	return nil
}

func writeCSVStatistics(w io.Writer, rows []schema.StatisticsRow, fmtFloat func(float64) string) error {
	header := []string{
		"date", "entity_id", "name", "username", "domain", "current_rank",
		"rank_change_24h", "rank_change_72h", "rank_change_7d", "rank_change_30d",
		"total_observations", "avg_rank", "best_rank", "worst_rank",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range rows {
			row := []string{
				schema.FormatDate(r.Date),
				r.EntityID,
				r.Name,
				r.Username,
				r.Domain,
				strconv.Itoa(r.CurrentRank),
				csvDelta(r.Change24h),
				csvDelta(r.Change72h),
				csvDelta(r.Change7d),
				csvDelta(r.Change30d),
				strconv.Itoa(r.TotalObservations),
				fmtFloat(r.AvgRank),
				strconv.Itoa(r.BestRank),
				strconv.Itoa(r.WorstRank),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeStatisticsTable(w io.Writer, rows []schema.StatisticsRow, date time.Time, cfg *contract.Config, fmtFloat func(float64) string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "No statistics recorded for %s.\n", schema.FormatDate(date))
		return err
	}
	nameWidth := GetMaxTableNameWidth(cfg)

	headers := []string{"Rank", "Name", "Author", "24h", "72h", "7d", "30d", "Obs", "Avg", "Best", "Worst"}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			strconv.Itoa(r.CurrentRank),
			contract.TruncateText(r.Name, nameWidth),
			"@" + r.Username,
			formatDelta(r.Change24h, cfg.UseColors),
			formatDelta(r.Change72h, cfg.UseColors),
			formatDelta(r.Change7d, cfg.UseColors),
			formatDelta(r.Change30d, cfg.UseColors),
			strconv.Itoa(r.TotalObservations),
			fmtFloat(r.AvgRank),
			strconv.Itoa(r.BestRank),
			strconv.Itoa(r.WorstRank),
		})
	}
	if err := renderTable(w, headers, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Statistics for %s: showing %d entities\n", schema.FormatDate(date), len(rows))
	return err
}
