package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// PrintHistory outputs the rank history of an entity to stdout or the configured file.
func PrintHistory(entityID string, facts []schema.RankFact, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteHistory(w, entityID, facts, cfg)
	}, "Wrote rank history")
}

// WriteHistory writes the rank history oldest first. The text table shows the
// move from the previous recorded date in the Change column.
func WriteHistory(w io.Writer, entityID string, facts []schema.RankFact, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if facts == nil {
			facts = []schema.RankFact{}
		}
		if err := writeJSON(w, facts); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		err := writeCSVWithHeader(w, []string{"entity_id", "date", "rank"}, func(cw *csv.Writer) error {
			for _, f := range facts {
				if err := cw.Write([]string{f.EntityID, schema.FormatDate(f.Date), strconv.Itoa(f.Rank)}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeHistoryTable(w, entityID, facts, cfg); err != nil {
			return fmt.Errorf("error writing history table output: %w", err)
		}
	}
	return nil
}

func writeHistoryTable(w io.Writer, entityID string, facts []schema.RankFact, cfg *contract.Config) error {
	if len(facts) == 0 {
		_, err := fmt.Fprintf(w, "No rank history for %s.\n", entityID)
		return err
	}
	data := make([][]string, 0, len(facts))
	for i, f := range facts {
		change := schema.RankDelta{}
		if i > 0 {
			change = schema.DeltaBetween(facts[i-1].Rank, f.Rank)
		}
		data = append(data, []string{schema.FormatDate(f.Date), strconv.Itoa(f.Rank), formatDelta(change, cfg.UseColors)})
	}
	if err := renderTable(w, []string{"Date", "Rank", "Change"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "History for %s: %d observations\n", entityID, len(facts))
	return err
}
