package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/store"
	"github.com/huangsam/apprank/schema"
)

// WriteStoreStatus writes store status as JSON or the plain status report.
func WriteStoreStatus(w io.Writer, status schema.StoreStatus, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		if err := writeJSON(w, status); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
		return nil
	}
	store.PrintStoreStatus(w, status)
	return nil
}
