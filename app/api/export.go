package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lysyi3m/veille/app/feed"
)

const (
	ExportCSV  = "csv"
	ExportJSON = "json"
)

var csvHeader = []string{"Titre", "Résumé", "Source", "Tags", "Date", "Lien"}

// exportDateLayout renders dates the way French locales print them.
const exportDateLayout = "02/01/2006 15:04:05"

func WriteCSV(w io.Writer, items []feed.Item) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.Title,
			item.Summary,
			item.Source,
			strings.Join(item.Tags, "; "),
			exportDate(item.DateISO),
			item.Link,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func WriteJSON(w io.Writer, items []feed.Item) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(items); err != nil {
		return fmt.Errorf("failed to write json export: %w", err)
	}
	return nil
}

func exportDate(dateISO string) string {
	t, err := time.Parse(time.RFC3339, dateISO)
	if err != nil {
		return dateISO
	}
	return t.In(time.Local).Format(exportDateLayout)
}
