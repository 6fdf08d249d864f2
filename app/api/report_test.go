package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/veille/app/feed"
)

func TestBuildReport(t *testing.T) {
	items := make([]feed.Item, 7)
	for i := range items {
		items[i] = feed.Item{Title: "Item " + string(rune('A'+i)), Source: "Le Monde", Link: "https://example.com/" + string(rune('a'+i))}
	}

	report := BuildReport("Budget", items)

	if report.Subject != "Rapport de veille - Budget" {
		t.Errorf("Expected French subject, got: %s", report.Subject)
	}
	if report.Count != 7 {
		t.Errorf("Expected count 7, got: %d", report.Count)
	}
	if !strings.Contains(report.Body, "Nombre total d'éléments : 7") {
		t.Errorf("Expected total in body, got: %s", report.Body)
	}
	if !strings.Contains(report.Body, "5. Item E") || strings.Contains(report.Body, "6. Item F") {
		t.Errorf("Expected exactly the top 5 items, got: %s", report.Body)
	}
	if !strings.HasPrefix(report.Mailto, "mailto:?subject=Rapport%20de%20veille%20-%20Budget&body=") {
		t.Errorf("Unexpected mailto: %s", report.Mailto)
	}
}

func TestBuildMailtoEncodesComponents(t *testing.T) {
	mailto := BuildMailto([]string{"a@example.com", " ", "b@example.com"}, "", "Ligne 1\nA & B")

	parsed, err := url.Parse(mailto)
	if err != nil {
		t.Fatalf("Expected valid URL, got: %v", err)
	}
	if parsed.Scheme != "mailto" {
		t.Errorf("Expected mailto scheme, got: %s", parsed.Scheme)
	}
	if parsed.Opaque != "a%40example.com%2Cb%40example.com" {
		t.Errorf("Expected encoded recipients, got: %s", parsed.Opaque)
	}

	query := parsed.Query()
	if query.Get("subject") != defaultEmailSubject {
		t.Errorf("Expected default subject, got: %s", query.Get("subject"))
	}
	if query.Get("body") != "Ligne 1\nA & B" {
		t.Errorf("Expected body to round-trip, got: %q", query.Get("body"))
	}
	if strings.Contains(mailto, "+") {
		t.Errorf("Expected spaces encoded as %%20, got: %s", mailto)
	}
}

func TestWriteCSV(t *testing.T) {
	items := []feed.Item{{
		Title:   `Le "budget" 2024`,
		Summary: "Vote, puis débat",
		Source:  "Le Monde",
		Tags:    []string{"budget", "finances"},
		DateISO: "2024-01-02T15:04:05.000Z",
		Link:    "https://example.com/a",
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, items); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Expected valid CSV, got: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected header and 1 record, got: %d", len(records))
	}
	if strings.Join(records[0], ",") != "Titre,Résumé,Source,Tags,Date,Lien" {
		t.Errorf("Unexpected header: %v", records[0])
	}

	row := records[1]
	if row[0] != `Le "budget" 2024` || row[1] != "Vote, puis débat" {
		t.Errorf("Expected quoted fields to round-trip, got: %v", row)
	}
	if row[3] != "budget; finances" {
		t.Errorf("Expected tags joined with '; ', got: %s", row[3])
	}
	expectedDate := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC).In(time.Local).Format(exportDateLayout)
	if row[4] != expectedDate {
		t.Errorf("Expected date %s, got: %s", expectedDate, row[4])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, []feed.Item{{ID: "1", Title: "A", Tags: []string{}}}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var decoded []feed.Item
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "1" {
		t.Errorf("Unexpected export: %+v", decoded)
	}
}
