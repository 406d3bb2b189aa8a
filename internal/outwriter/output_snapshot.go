package outwriter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
)

// PrintSnapshot outputs an archived snapshot to stdout or the configured file.
func PrintSnapshot(snap schema.Snapshot, raw bool, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteSnapshot(w, snap, raw, cfg)
	}, "Wrote snapshot")
}

// WriteSnapshot writes snapshot metadata, or the archived payload when raw is set.
func WriteSnapshot(w io.Writer, snap schema.Snapshot, raw bool, cfg *contract.Config) error {
	if raw {
		var buf bytes.Buffer
		if err := json.Indent(&buf, snap.Payload, "", "  "); err != nil {
			return fmt.Errorf("snapshot %s has an invalid payload: %w", schema.FormatDate(snap.Date), err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, snap)
	default:
		_, err := fmt.Fprintf(w, "Snapshot %s: %d entities, %d payload bytes\n",
			schema.FormatDate(snap.Date), snap.EntityCount, len(snap.Payload))
		return err
	}
}
