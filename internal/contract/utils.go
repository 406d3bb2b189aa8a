package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/apprank/schema"
)

// Color variables for console output.
var (
	GainColor = color.New(color.FgGreen, color.Bold) // GainColor marks rank improvements.
	LossColor = color.New(color.FgRed)               // LossColor marks rank drops.
	FlatColor = color.New(color.FgYellow)            // FlatColor marks unchanged ranks.
	NAColor   = color.New(color.Faint)               // NAColor marks unknown changes.
)

// GetColorDelta returns a colored delta label for console output (table).
func GetColorDelta(d schema.RankDelta) string {
	text := d.String()
	switch {
	case !d.Valid:
		return NAColor.Sprint(text)
	case d.Value > 0:
		return GainColor.Sprint(text)
	case d.Value < 0:
		return LossColor.Sprint(text)
	default:
		return FlatColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetStoreDBFilePath returns the path to the SQLite DB file for rank storage.
func GetStoreDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".apprank.db"
	}
	return filepath.Join(homeDir, ".apprank.db")
}

// BackupFileName returns the JSON backup file name for a run date.
func BackupFileName(date string) string {
	return fmt.Sprintf("top_miniapps_%s.json", date)
}

// TruncateText truncates s to maxWidth runes with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and at least one character.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
