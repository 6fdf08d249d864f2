package api

import (
	"cmp"
	"fmt"
	"net/url"
	"strings"

	"github.com/lysyi3m/veille/app/feed"
)

const (
	reportTopItems       = 5
	defaultEmailSubject  = "Veille – Rapport"
	reportSubjectPattern = "Rapport de veille - %s"
)

type Report struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Count   int    `json:"count"`
	Mailto  string `json:"mailto"`
}

// BuildReport summarises the items of a tab as a plain text email with the
// first few items listed.
func BuildReport(tabTitle string, items []feed.Item) *Report {
	var body strings.Builder

	fmt.Fprintf(&body, "Bonjour,\n\nVoici un résumé de la veille %s :\n\n", tabTitle)
	fmt.Fprintf(&body, "Nombre total d'éléments : %d\n\n", len(items))
	body.WriteString("Top 5 des contenus :\n\n")

	for i, item := range items[:min(len(items), reportTopItems)] {
		fmt.Fprintf(&body, "%d. %s\n", i+1, item.Title)
		fmt.Fprintf(&body, "   Source : %s\n", item.Source)
		fmt.Fprintf(&body, "   Lien : %s\n\n", item.Link)
	}

	body.WriteString("Cordialement")

	subject := fmt.Sprintf(reportSubjectPattern, tabTitle)

	return &Report{
		Subject: subject,
		Body:    body.String(),
		Count:   len(items),
		Mailto:  BuildMailto(nil, subject, body.String()),
	}
}

func BuildMailto(to []string, subject, body string) string {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		escapeComponent(strings.Join(recipients, ",")),
		escapeComponent(cmp.Or(subject, defaultEmailSubject)),
		escapeComponent(body))
}

// escapeComponent percent-encodes s for a mailto header value, with spaces as
// %20 since mail clients do not decode '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
