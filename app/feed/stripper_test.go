package feed

import "testing"

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "Hello world", "Hello world"},
		{"tags", "<b>Hello</b> <i>world</i>", "Hello world"},
		{"whitespace runs", "  Hello \n\t  world  ", "Hello world"},
		{"nested", "<p>Le <a href=\"x\">budget</a><br/>2026</p>", "Le budget2026"},
		{"entities", "Caf&eacute; &amp; cr&egrave;me", "Café & crème"},
		{"script removed", "<p>Text</p><script>alert(1)</script>", "Text"},
		{"only tags", "<br/><hr/>", ""},
		{"decomposed accents", "Cafe\u0301", "Caf\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripMarkup(tt.input)
			if got != tt.expected {
				t.Errorf("Expected %q, got: %q", tt.expected, got)
			}
		})
	}
}
