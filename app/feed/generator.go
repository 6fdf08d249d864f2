package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

type Generator struct {
	baseURL string
	port    string
	version string
}

func NewGenerator(baseURL, port, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		port:    port,
		version: version,
	}
}

// Run renders the snapshot of a tab as an RSS 2.0 document. Items are written
// in the order given.
func (g *Generator) Run(tabConfig *Config, items []Item, updatedAt time.Time) (string, error) {
	if tabConfig == nil {
		return "", fmt.Errorf("tab config is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	selfLink := g.selfLink(tabConfig.Name)

	g.writeElement(&buf, "title", tabConfig.DisplayTitle(), 4)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Veille: %s", tabConfig.DisplayTitle()), 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := cmp.Or(updatedAt, time.Now())
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.UTC().Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Veille/%s", cmp.Or(g.version, "dev")), 4)

	for _, item := range items {
		g.writeItem(&buf, item, selfLink)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) selfLink(tabName string) string {
	if g.baseURL != "" {
		return fmt.Sprintf("%s/feeds/%s", g.baseURL, tabName)
	}
	return fmt.Sprintf("http://localhost:%s/feeds/%s", g.port, tabName)
}

func (g *Generator) writeItem(buf *bytes.Buffer, item Item, selfLink string) {
	buf.WriteString("    <item>\n")

	if item.ID != "" {
		buf.WriteString("      <guid isPermaLink=\"false\">")
		xml.EscapeText(buf, []byte(item.ID))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.Link, 6)
	g.writeElement(buf, "description", item.Summary, 6)

	if published, err := time.Parse(DateLayout, item.DateISO); err == nil {
		g.writeElement(buf, "pubDate", published.Format(time.RFC1123Z), 6)
	}

	if item.Source != "" {
		// RSS 2.0 requires the url attribute; it points back at this feed.
		fmt.Fprintf(buf, "      <source url=\"%s\">", html.EscapeString(selfLink))
		xml.EscapeText(buf, []byte(item.Source))
		buf.WriteString("</source>\n")
	}

	for _, tag := range item.Tags {
		g.writeElement(buf, "category", tag, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
