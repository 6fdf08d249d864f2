package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// StripMarkup removes HTML tags from s and returns trimmed plain text with
// whitespace runs collapsed to single spaces. Entities are decoded.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}

	text := s
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script, style").Remove()
			text = doc.Text()
		}
	}

	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}
