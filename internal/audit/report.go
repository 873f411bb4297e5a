package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

var problemsCSVHeader = []string{"severity", "category", "key", "message"}

// WriteCSV renders the problems as CSV with a header row.
func WriteCSV(w io.Writer, problems []Problem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(problemsCSVHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, p := range problems {
		record := []string{string(p.Severity), p.Category, p.Key, p.Message}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON renders the problems as an indented JSON array.
func WriteJSON(w io.Writer, problems []Problem) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(problems)
}
