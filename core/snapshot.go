package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/upstream"
	"github.com/huangsam/apprank/schema"
	"github.com/tidwall/gjson"
)

// Backup file keys.
const (
	backupDateKey    = "snapshotDate"
	backupEntriesKey = "miniapps"
)

// backupDeltaKeys names the delta fields merged into each backup entry.
var backupDeltaKeys = map[schema.Window]string{
	schema.Window24h: "rank24hChange",
	schema.Window72h: "rank72hChange",
	schema.Window7d:  "rank7dChange",
	schema.Window30d: "rank30dChange",
}

// backupFile is the JSON document written after a successful run.
type backupFile struct {
	SnapshotDate string            `json:"snapshotDate"`
	MiniApps     []json.RawMessage `json:"miniapps"`
}

// WriteBackup writes top_miniapps_<date>.json into dir and returns its path.
// Every entry is the raw upstream element with its deltas merged in.
func WriteBackup(dir string, runDate time.Time, entries []schema.RankEntry, deltas map[string]schema.RankDeltas) (string, error) {
	doc := backupFile{
		SnapshotDate: schema.FormatDate(runDate),
		MiniApps:     make([]json.RawMessage, 0, len(entries)),
	}
	for _, e := range entries {
		merged, err := mergeDeltas(e, deltas[e.Entity.ID])
		if err != nil {
			return "", fmt.Errorf("entry %s: %w", e.Entity.ID, err)
		}
		doc.MiniApps = append(doc.MiniApps, merged)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, contract.BackupFileName(doc.SnapshotDate))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", path, err)
	}
	return path, nil
}

func mergeDeltas(e schema.RankEntry, d schema.RankDeltas) (json.RawMessage, error) {
	raw, err := upstream.RawEntry(e)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for w, key := range backupDeltaKeys {
		v, err := json.Marshal(d.Get(w))
		if err != nil {
			return nil, err
		}
		fields[key] = v
	}
	return json.Marshal(fields)
}

// LoadSnapshotFile turns a backup document or a bare JSON array of entries into a
// Snapshot. When date is zero the backup's snapshotDate is used.
func LoadSnapshotFile(data []byte, date time.Time) (schema.Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return schema.Snapshot{}, errors.New("snapshot file is not valid JSON")
	}

	doc := gjson.ParseBytes(data)
	var list gjson.Result
	switch {
	case doc.IsArray():
		list = doc
	case doc.Get(backupEntriesKey).IsArray():
		list = doc.Get(backupEntriesKey)
		if date.IsZero() && doc.Get(backupDateKey).Exists() {
			parsed, err := schema.ParseDate(doc.Get(backupDateKey).String())
			if err != nil {
				return schema.Snapshot{}, err
			}
			date = parsed
		}
	default:
		return schema.Snapshot{}, fmt.Errorf("snapshot file must be a JSON array or an object with a %q array", backupEntriesKey)
	}
	if date.IsZero() {
		return schema.Snapshot{}, errors.New("snapshot date is required")
	}

	return schema.Snapshot{
		Date:        schema.NormalizeDate(date),
		EntityCount: len(list.Array()),
		Payload:     json.RawMessage(list.Raw),
	}, nil
}

// ReplaceSnapshot re-archives snap in its own transaction, replacing any prior
// snapshot of the same date.
func ReplaceSnapshot(ctx context.Context, store contract.RankStore, snap schema.Snapshot) error {
	return store.WithinTx(ctx, func(tx contract.RankTx) error {
		return tx.ReplaceSnapshot(ctx, snap)
	})
}
