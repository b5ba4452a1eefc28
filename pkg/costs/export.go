package costs

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Format selects an export encoding.
type Format string

const (
	// FormatJSON exports entries as a JSON array.
	FormatJSON Format = "json"

	// FormatCSV exports entries as CSV with a header row.
	FormatCSV Format = "csv"
)

// csvHeader is the column order of CSV exports.
var csvHeader = []string{
	"provider", "timestamp", "cost",
	"tokens_used", "prompt_tokens", "completion_tokens",
	"model", "metadata",
}

// Export serializes every recorded entry in the requested format.
// Both formats carry every Entry field, so a recorded entry is always
// recoverable from an export.
func (m *Monitor) Export(format Format) ([]byte, error) {
	entries := m.Entries()

	switch format {
	case FormatJSON:
		return json.MarshalIndent(entries, "", "  ")
	case FormatCSV:
		return exportCSV(entries)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func exportCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}

	for _, e := range entries {
		metadata := ""
		if len(e.Metadata) > 0 {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				return nil, fmt.Errorf("encoding entry metadata: %w", err)
			}
			metadata = string(raw)
		}

		record := []string{
			e.Provider,
			e.Timestamp.Format(time.RFC3339Nano),
			strconv.FormatFloat(e.Cost, 'f', -1, 64),
			strconv.Itoa(e.TokensUsed),
			strconv.Itoa(e.PromptTokens),
			strconv.Itoa(e.CompletionTokens),
			e.Model,
			metadata,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}
